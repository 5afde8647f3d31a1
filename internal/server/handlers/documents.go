package handlers

// documents.go implements the /v1/documents endpoints.

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/information-sharing-networks/docsign/internal/api"
	"github.com/information-sharing-networks/docsign/internal/crypto"
	"github.com/information-sharing-networks/docsign/internal/identity"
	"github.com/information-sharing-networks/docsign/internal/logger"
	"github.com/information-sharing-networks/docsign/internal/workflow"
)

// multipartMemory is the part of an upload kept in memory; the rest spills to temporary files.
const multipartMemory = 8 << 20

// checksumHeader optionally carries the hex SHA-256 of a signed copy.
const checksumHeader = "X-Checksum-Sha256"

// DocumentsHandler handles the document workflow endpoints.
type DocumentsHandler struct {
	engine *workflow.Engine
}

// NewDocumentsHandler creates the handler for engine.
func NewDocumentsHandler(engine *workflow.Engine) *DocumentsHandler {
	return &DocumentsHandler{engine: engine}
}

// HandleUpload godoc
//
//	@Summary		Upload a document
//	@Description	Encrypts and stores a document and requests the listed recipients to sign it.
//	@Description	The document expires seven days after upload unless a recipient accepts or delays it.
//	@Description
//	@Description	`recipients` is a JSON array, e.g. `[{"name":"Alice","email":"alice@example.com"}]`.
//	@Tags			Documents
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file		formData	file				true	"Document to upload"
//	@Param			recipients	formData	string				true	"Recipients (JSON array)"
//	@Success		201			{object}	api.UploadResponse	"Document stored"
//	@Failure		400			{object}	api.ErrorResponse	"Malformed request or invalid recipients"
//	@Failure		401			{object}	api.ErrorResponse	"Missing or invalid bearer token"
//	@Router			/v1/documents [post]
func (h *DocumentsHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		api.RespondWithErrorResponse(w, r, bodyError(err, "expected a multipart/form-data body"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	recipients, err := api.DecodeRecipients(r.FormValue("recipients"))
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.RespondWithErrorResponse(w, r, api.WrapMalformedRequestError(err, "the file part is required"))
		return
	}
	defer file.Close()

	content, err := readPart(file)
	if err != nil {
		api.RespondWithErrorResponse(w, r, bodyError(err, "failed to read uploaded file"))
		return
	}

	logger.ContextRequestLogger(r.Context()).Debug("multipart upload parsed",
		slog.String("file_name", header.Filename),
		slog.Int("recipients", len(recipients)),
		slog.Int("size_bytes", len(content)),
	)

	id, err := h.engine.UploadDocument(r.Context(), caller, header.Filename, content, recipients)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	api.RespondWithJSONPayload(w, http.StatusCreated, api.UploadResponse{ID: id})
}

// HandleListOwned godoc
//
//	@Summary		List my documents
//	@Description	Lists the documents uploaded by the caller, newest first. Expired documents are
//	@Description	included with status `expired`.
//	@Tags			Documents
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	api.DocumentListResponse
//	@Failure		401	{object}	api.ErrorResponse	"Missing or invalid bearer token"
//	@Router			/v1/documents [get]
func (h *DocumentsHandler) HandleListOwned(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	docs, err := h.engine.ListOwned(r.Context(), caller)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	api.RespondWithJSONPayload(w, http.StatusOK, api.NewDocumentListResponse(docs))
}

// HandleListPending godoc
//
//	@Summary		List documents awaiting me
//	@Description	Lists the unexpired documents on which the caller is a recipient and that are
//	@Description	still open (pending_signature, accepted or delayed), newest first.
//	@Tags			Documents
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	api.DocumentListResponse
//	@Failure		401	{object}	api.ErrorResponse	"Missing or invalid bearer token"
//	@Router			/v1/documents/pending [get]
func (h *DocumentsHandler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	docs, err := h.engine.ListPendingForRecipient(r.Context(), caller)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	api.RespondWithJSONPayload(w, http.StatusOK, api.NewDocumentListResponse(docs))
}

// HandleGet godoc
//
//	@Summary		Get a document
//	@Description	Returns the document metadata and its decrypted content (base64 in `content`).
//	@Description	Only the owner and the recipients may read a document, and only before it expires.
//	@Tags			Documents
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string					true	"Document ID"
//	@Success		200	{object}	workflow.DecryptedView
//	@Failure		403	{object}	api.ErrorResponse	"Caller is neither owner nor recipient"
//	@Failure		404	{object}	api.ErrorResponse	"Document not found"
//	@Failure		410	{object}	api.ErrorResponse	"Document expired"
//	@Router			/v1/documents/{id} [get]
func (h *DocumentsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	view, err := h.engine.GetDocument(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	api.RespondWithJSONPayload(w, http.StatusOK, view)
}

// HandleGetContent godoc
//
//	@Summary		Download a document
//	@Description	Returns the decrypted document bytes. Access rules are those of GET /v1/documents/{id}.
//	@Tags			Documents
//	@Produce		octet-stream
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Document ID"
//	@Success		200	{file}		binary
//	@Failure		403	{object}	api.ErrorResponse	"Caller is neither owner nor recipient"
//	@Failure		404	{object}	api.ErrorResponse	"Document not found"
//	@Failure		410	{object}	api.ErrorResponse	"Document expired"
//	@Router			/v1/documents/{id}/content [get]
func (h *DocumentsHandler) HandleGetContent(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	view, err := h.engine.GetDocument(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	api.RespondWithContent(w, view.FileName, view.ChecksumSHA256, view.Content)
}

// HandleAccept godoc
//
//	@Summary		Accept a signature request
//	@Description	Commits the caller (a recipient) to signing. Clears the expiry deadline.
//	@Tags			Documents
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Document ID"
//	@Success		200	{object}	workflow.DocumentSummary
//	@Failure		403	{object}	api.ErrorResponse	"Caller is not a recipient"
//	@Failure		409	{object}	api.ErrorResponse	"Not allowed in the current state"
//	@Failure		410	{object}	api.ErrorResponse	"Document expired"
//	@Router			/v1/documents/{id}/accept [post]
func (h *DocumentsHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.Accept)
}

// HandleReject godoc
//
//	@Summary		Reject a signature request
//	@Description	Declines to sign. The document expires immediately.
//	@Tags			Documents
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Document ID"
//	@Success		200	{object}	workflow.DocumentSummary
//	@Failure		403	{object}	api.ErrorResponse	"Caller is not a recipient"
//	@Failure		409	{object}	api.ErrorResponse	"Not allowed in the current state"
//	@Failure		410	{object}	api.ErrorResponse	"Document expired"
//	@Router			/v1/documents/{id}/reject [post]
func (h *DocumentsHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.Reject)
}

// HandleDelay godoc
//
//	@Summary		Delay a signature request
//	@Description	Extends the current expiry deadline by seven days. Every call extends it again,
//	@Description	so clients must not retry this request blindly.
//	@Tags			Documents
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Document ID"
//	@Success		200	{object}	workflow.DocumentSummary
//	@Failure		403	{object}	api.ErrorResponse	"Caller is not a recipient"
//	@Failure		409	{object}	api.ErrorResponse	"Not allowed in the current state"
//	@Failure		410	{object}	api.ErrorResponse	"Document expired"
//	@Router			/v1/documents/{id}/delay [post]
func (h *DocumentsHandler) HandleDelay(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.Delay)
}

type transitionFunc func(ctx context.Context, id identity.Identity, docID string) (workflow.DocumentSummary, error)

func (h *DocumentsHandler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	summary, err := fn(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	api.RespondWithJSONPayload(w, http.StatusOK, summary)
}

// HandlePlaceFields godoc
//
//	@Summary		Place input fields
//	@Description	Places signature (or other input) fields for recipients. Owner only.
//	@Description	`mode=append` (default) adds to the existing fields, `mode=replace` replaces them.
//	@Description	Every recipient of the document is notified that their signature is requested.
//	@Tags			Documents
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string					true	"Document ID"
//	@Param			mode	query		string					false	"append or replace"	Enums(append, replace)
//	@Param			request	body		api.PlaceFieldsRequest	true	"Fields to place"
//	@Success		200		{object}	workflow.DocumentSummary
//	@Failure		400		{object}	api.ErrorResponse	"Malformed request or invalid field"
//	@Failure		403		{object}	api.ErrorResponse	"Caller is not the owner"
//	@Failure		409		{object}	api.ErrorResponse	"Not allowed in the current state"
//	@Router			/v1/documents/{id}/fields [put]
func (h *DocumentsHandler) HandlePlaceFields(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	mode, err := workflow.ParsePlaceMode(r.URL.Query().Get("mode"))
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.RespondWithErrorResponse(w, r, bodyError(err, "failed to read request body"))
		return
	}

	req, err := api.DecodePlaceFieldsRequest(body)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	summary, err := h.engine.PlaceFields(r.Context(), caller, chi.URLParam(r, "id"), req.Fields, mode)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	api.RespondWithJSONPayload(w, http.StatusOK, summary)
}

// HandleSignedCopy godoc
//
//	@Summary		Submit the signed copy
//	@Description	Replaces the document content with the signed copy (raw request body) and marks
//	@Description	the document signed. Requires a prior accept or delay and placed signature fields.
//	@Tags			Documents
//	@Accept			octet-stream
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string				true	"Document ID"
//	@Param			content	body		string				true	"Signed document bytes"
//	@Param			X-Checksum-Sha256	header	string	false	"Hex SHA-256 of the signed document bytes"
//	@Success		200		{object}	api.UploadResponse	"Signed copy stored"
//	@Failure		400		{object}	api.ErrorResponse	"Empty body or checksum mismatch"
//	@Failure		403		{object}	api.ErrorResponse	"Caller is not a recipient"
//	@Failure		409		{object}	api.ErrorResponse	"Not signature ready or not allowed in the current state"
//	@Failure		410		{object}	api.ErrorResponse	"Document expired"
//	@Failure		413		{object}	api.ErrorResponse	"Body too large"
//	@Router			/v1/documents/{id}/signed-copy [post]
func (h *DocumentsHandler) HandleSignedCopy(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	content, err := io.ReadAll(r.Body)
	if err != nil {
		api.RespondWithErrorResponse(w, r, bodyError(err, "failed to read request body"))
		return
	}

	if want := strings.ToLower(strings.TrimSpace(r.Header.Get(checksumHeader))); want != "" {
		if !crypto.VerifyChecksum(content, want) {
			api.RespondWithErrorResponse(w, r, api.NewMalformedRequestError(checksumHeader+" does not match the request body"))
			return
		}
	}

	id, err := h.engine.CommitSignedPayload(r.Context(), caller, chi.URLParam(r, "id"), content)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	api.RespondWithJSONPayload(w, http.StatusOK, api.UploadResponse{ID: id})
}

// HandleDelete godoc
//
//	@Summary		Delete a document
//	@Description	Deletes a document. Owner only. Deleting an already deleted document succeeds.
//	@Tags			Documents
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Document ID"
//	@Success		204	"Deleted"
//	@Failure		403	{object}	api.ErrorResponse	"Caller is not the owner"
//	@Failure		404	{object}	api.ErrorResponse	"Document not found"
//	@Router			/v1/documents/{id} [delete]
func (h *DocumentsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	if err := h.engine.DeleteDocument(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	api.RespondWithStatusCodeOnly(w, http.StatusNoContent)
}

// callerIdentity returns the identity set by the Authenticate middleware, writing a 401 when
// there is none.
func callerIdentity(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		api.RespondWithErrorResponse(w, r, api.NewUnauthenticatedError("a bearer token is required"))
		return identity.Identity{}, false
	}
	return id, true
}

// readPart reads an uploaded multipart file.
func readPart(f multipart.File) ([]byte, error) {
	return io.ReadAll(f)
}

// bodyError maps a body read failure to a 413 when the size limit was hit, 400 otherwise.
func bodyError(err error, msg string) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return api.NewRequestTooLargeError(msg + ": request body too large")
	}
	return api.WrapMalformedRequestError(err, msg)
}
