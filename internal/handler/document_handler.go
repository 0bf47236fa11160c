package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/academiapro/academiapro-api/internal/service"
	appErrors "github.com/academiapro/academiapro-api/pkg/errors"
	"github.com/academiapro/academiapro-api/pkg/response"
	"github.com/academiapro/academiapro-api/pkg/storage"
)

// DocumentHandler issues signed download links for generated documents and
// serves them back without authentication. Tokens are self-contained so the
// public route needs no session.
type DocumentHandler struct {
	gradebook *service.GradebookService
	store     *storage.LocalStorage
	signer    *storage.SignedURLSigner
}

// NewDocumentHandler creates a new handler.
func NewDocumentHandler(gradebook *service.GradebookService, store *storage.LocalStorage, signer *storage.SignedURLSigner) *DocumentHandler {
	return &DocumentHandler{gradebook: gradebook, store: store, signer: signer}
}

// SignReportCard godoc
// @Summary Create a signed download link for a report card PDF
// @Description The link is valid until expires_at and can be shared with parents without an account.
// @Tags Documents
// @Produce json
// @Param id path string true "Report card ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /report-cards/{id}/link [post]
func (h *DocumentHandler) SignReportCard(c *gin.Context) {
	card, err := h.gradebook.GetReportCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if card.FilePath == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrDomain, "report card PDF is not rendered yet"))
		return
	}

	token, expiresAt, err := h.signer.Generate(card.ID, *card.FilePath)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not sign download link"))
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"token":      token,
		"url":        "/public/documents/" + token,
		"expires_at": expiresAt,
	}, nil)
}

// Download godoc
// @Summary Download a document via a signed token
// @Tags Documents
// @Produce application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /public/documents/{token} [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	_, relPath, _, err := h.signer.Parse(c.Param("token"), false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link"))
		return
	}

	data, err := h.store.Read(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "document no longer exists"))
		return
	}

	response.PDF(c, filepath.Base(relPath), data)
}
