package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	internalErrors "github.com/gcbaptista/quicksearch/internal/errors"
	"github.com/gcbaptista/quicksearch/model"
)

// PutDocumentsHandler adds or replaces documents. The body is a single
// document object or an array of them; each needs a string "_id".
func (api *API) PutDocumentsHandler(c *gin.Context) {
	var rawData interface{}
	if !bindJSON(c, &rawData) {
		return
	}

	var docs []model.Document
	if dataSlice, isSlice := rawData.([]interface{}); isSlice {
		docs = make([]model.Document, len(dataSlice))
		for i, item := range dataSlice {
			docMap, isMap := item.(map[string]interface{})
			if !isMap {
				SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest,
					fmt.Sprintf("Document at index %d is not a valid object", i))
				return
			}
			docs[i] = docMap
		}
	} else if docMap, isMap := rawData.(map[string]interface{}); isMap {
		docs = []model.Document{docMap}
	} else {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest,
			"Invalid request body. Expecting a document object or an array of documents")
		return
	}

	if result := ValidateDocuments(docs); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	for _, doc := range docs {
		doc[model.IDField] = strings.TrimSpace(doc[model.IDField].(string))
	}

	seq, err := api.engine.PutDocuments(c.Request.Context(), docs)
	if err != nil {
		api.sendEngineError(c, "put documents", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        fmt.Sprintf("%d document(s) added/updated", len(docs)),
		"document_count": len(docs),
		"update_seq":     seq,
	})
}

// GetDocumentsHandler lists documents ordered by id.
// Query params: offset (default 0), limit (default 10, max 100).
func (api *API) GetDocumentsHandler(c *gin.Context) {
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "offset must be an integer")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "limit must be an integer")
		return
	}

	offset, limit, result := ValidatePagination(offset, limit)
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	docs, total, err := api.engine.ListDocuments(c.Request.Context(), offset, limit)
	if err != nil {
		api.sendEngineError(c, "list documents", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"total":     total,
		"offset":    offset,
		"limit":     limit,
	})
}

// GetDocumentHandler returns one document.
func (api *API) GetDocumentHandler(c *gin.Context) {
	documentID := c.Param("documentId")
	if result := ValidateDocumentID(documentID); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	doc, err := api.engine.GetDocument(c.Request.Context(), documentID)
	if err != nil {
		if errors.Is(err, internalErrors.ErrDocumentNotFound) {
			SendDocumentNotFoundError(c, documentID)
			return
		}
		api.sendEngineError(c, "get document", err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// DeleteDocumentHandler removes one document. Indexes drop it on their next
// refresh.
func (api *API) DeleteDocumentHandler(c *gin.Context) {
	documentID := c.Param("documentId")
	if result := ValidateDocumentID(documentID); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.engine.DeleteDocument(c.Request.Context(), documentID); err != nil {
		if errors.Is(err, internalErrors.ErrDocumentNotFound) {
			SendDocumentNotFoundError(c, documentID)
			return
		}
		api.sendEngineError(c, "delete document", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document '" + documentID + "' deleted"})
}
