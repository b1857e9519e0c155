package tokenizer

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	internalErrors "github.com/gcbaptista/quicksearch/internal/errors"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(4)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestPlainTokenize(t *testing.T) {
	tok, err := newTestRegistry(t).Get(PlainLanguage)
	if err != nil {
		t.Fatalf("Get(%q): %v", PlainLanguage, err)
	}

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty string", "", []string{}},
		{"simple lowercase", "hello world", []string{"hello", "world"}},
		{"with punctuation", "hello, world!", []string{"hello", "world"}},
		{"with numbers", "item123 test", []string{"item123", "test"}},
		{"leading/trailing spaces", "  hello world  ", []string{"hello", "world"}},
		{"camelCase", "theOffice", []string{"the", "office"}},
		{"PascalCase", "TheOffice", []string{"the", "office"}},
		{"mixedCase", "myAPIService", []string{"my", "api", "service"}},
		{"acronym then camelCase", "HTTPRequestManager", []string{"http", "request", "manager"}},
		{"string with hyphen", "state-of-the-art", []string{"state", "of", "the", "art"}},
		{"string with underscore", "my_variable_name", []string{"my", "variable", "name"}},
		{"all caps word", "HELLO WORLD", []string{"hello", "world"}},
		{"mixed with numbers and symbols", "API_v1.0-beta!", []string{"api", "v1", "0", "beta"}},
		{"starts with digit then uppercase", "1Password", []string{"1", "password"}},
		{"only symbols", "!@#$%^", []string{}},
		{"repeats are kept", "fox fox", []string{"fox", "fox"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tok.Tokenize(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEnglishTokenize(t *testing.T) {
	tok, err := newTestRegistry(t).Get("en")
	if err != nil {
		t.Fatalf("Get(en): %v", err)
	}

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"stop words removed", "the fox and the dog", []string{"fox", "dog"}},
		{"plurals stemmed", "foxes jump", []string{"fox", "jump"}},
		{"case folded", "Quick BROWN", []string{"quick", "brown"}},
		{"only stop words", "the and of", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tok.Tokenize(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestUnique(t *testing.T) {
	tok, err := newTestRegistry(t).Get("en")
	if err != nil {
		t.Fatalf("Get(en): %v", err)
	}

	got := tok.Unique("fox dog foxes fox")
	want := []string{"fox", "dog"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Unique() = %v, want %v", got, want)
	}
}

func TestRegistryGet(t *testing.T) {
	r := newTestRegistry(t)

	t.Run("empty language selects default", func(t *testing.T) {
		tok, err := r.Get("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tok.Language() != DefaultLanguage {
			t.Errorf("Language() = %q, want %q", tok.Language(), DefaultLanguage)
		}
	})

	t.Run("cached instance reused", func(t *testing.T) {
		a, _ := r.Get("fr")
		b, _ := r.Get("fr")
		if a != b {
			t.Error("expected the same tokenizer for repeated lookups")
		}
	})

	t.Run("unknown language", func(t *testing.T) {
		_, err := r.Get("tlh")
		if err == nil {
			t.Fatal("expected error for unknown language")
		}
		if !errors.Is(err, internalErrors.ErrUnsupportedLanguage) {
			t.Errorf("expected ErrUnsupportedLanguage, got %v", err)
		}
		if r.Supported("tlh") {
			t.Error("Supported(tlh) = true")
		}
	})

	for _, lang := range []string{"de", "es", "it", "nl", "pt", "ru", "sv"} {
		if !r.Supported(lang) {
			t.Errorf("expected language %q to be supported", lang)
		}
	}
}

func TestRegistryConcurrentUse(t *testing.T) {
	r := newTestRegistry(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := r.Get("en")
			if err != nil {
				t.Errorf("Get(en): %v", err)
				return
			}
			if got := tok.Tokenize("jumping foxes"); len(got) != 2 {
				t.Errorf("Tokenize returned %v", got)
			}
		}()
	}
	wg.Wait()
}
