// Package api provides validation utilities for API request handling.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/quicksearch/model"
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of validation operations
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// ValidateDocumentID validates a document ID
func ValidateDocumentID(documentID string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if documentID == "" {
		result.AddError("documentId", "Document ID is required")
		return result
	}

	if strings.TrimSpace(documentID) != documentID {
		result.AddError("documentId", "Document ID cannot have leading or trailing whitespace")
	}

	return result
}

// ValidateDocuments checks that every document carries a usable "_id".
func ValidateDocuments(docs []model.Document) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if len(docs) == 0 {
		result.AddError("documents", "No documents provided")
		return result
	}

	for i, doc := range docs {
		field := fmt.Sprintf("documents[%d].%s", i, model.IDField)
		idVal, exists := doc[model.IDField]
		if !exists {
			result.AddError(field, "Document must have an '"+model.IDField+"' field")
			continue
		}

		id, ok := idVal.(string)
		if !ok {
			result.AddError(field, fmt.Sprintf("Document ID must be a string, got %T", idVal))
			continue
		}

		if strings.TrimSpace(id) == "" {
			result.AddError(field, "Document ID cannot be empty or whitespace-only")
		}
	}

	return result
}

// ValidatePagination applies defaults and caps to offset/limit paging.
func ValidatePagination(offset, limit int) (int, int, *ValidationResult) {
	result := &ValidationResult{Valid: true}

	if offset < 0 {
		result.AddError("offset", "Offset cannot be negative")
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	return offset, limit, result
}

// SendValidationError sends a standardized validation error response
func SendValidationError(c *gin.Context, result *ValidationResult) {
	SendStructuredValidationError(c, result)
}

// bindJSON decodes the request body into target, answering the request
// itself when the body is unusable.
func bindJSON(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			SendError(c, http.StatusRequestEntityTooLarge, ErrorCodeTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		SendInvalidJSONError(c, err)
		return false
	}
	return true
}
