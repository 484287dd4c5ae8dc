package controllers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	h "congresy/internal/delivery/http/helpers"
	"congresy/internal/domain"
)

// SendMessageRequest is the request body for POST /messages.
type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}

// Validate implements Validator.
func (s SendMessageRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(s.ReceiverID) == "" {
		errs = append(errs, "receiver_id is required")
	}
	if strings.TrimSpace(s.Subject) == "" {
		errs = append(errs, "subject is required")
	}
	return errs
}

type MessageController struct {
	Logger   *slog.Logger
	Messages domain.MessageService
}

func NewMessageController(logger *slog.Logger, messages domain.MessageService) *MessageController {
	return &MessageController{Logger: logger, Messages: messages}
}

// Send godoc
// @Summary Send a message
// @Description Files the message in the caller's Outbox and the receiver's Inbox.
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SendMessageRequest true "Message"
// @Success 201 {object} helpers.APIResponse "data contains the message"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (receiver or folder missing)"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /messages [post]
func (c *MessageController) Send(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	msg, err := c.Messages.Send(r.Context(), actorID, req.ReceiverID, domain.MessageDraft{Subject: req.Subject, Body: req.Body})
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, msg)
}

// GetMessage godoc
// @Summary Get a message
// @Description Only the sender or the receiver may read a message.
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param messageID path string true "Message ID"
// @Success 200 {object} helpers.APIResponse "data contains the message"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /messages/{messageID} [get]
func (c *MessageController) GetMessage(w http.ResponseWriter, r *http.Request) {
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	msg, err := c.Messages.GetMessage(r.Context(), r.PathValue("messageID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if msg.SenderID != actorID && msg.ReceiverID != actorID {
		h.WriteServiceError(w, r, c.Logger, fmt.Errorf("%w: message %s", domain.ErrForbidden, msg.ID))
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, msg)
}

// ListFolder godoc
// @Summary List or search a folder
// @Description Messages ordered by sent moment, oldest first. q filters subject and body case-insensitively.
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param folder path string true "Folder name, e.g. Inbox"
// @Param q query string false "keyword"
// @Success 200 {object} helpers.APIResponse "data contains the messages"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (folder missing)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /me/folders/{folder}/messages [get]
func (c *MessageController) ListFolder(w http.ResponseWriter, r *http.Request) {
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	folder := r.PathValue("folder")
	var (
		msgs []*domain.Message
		err  error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		msgs, err = c.Messages.Search(r.Context(), actorID, folder, q)
	} else {
		msgs, err = c.Messages.ListFolder(r.Context(), actorID, folder)
	}
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if msgs == nil {
		msgs = []*domain.Message{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, msgs)
}

// MoveToBin godoc
// @Summary Move a message to the caller's Bin
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param messageID path string true "Message ID"
// @Success 200 {object} helpers.APIResponse "data contains the message"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /messages/{messageID}/bin [post]
func (c *MessageController) MoveToBin(w http.ResponseWriter, r *http.Request) {
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	msg, err := c.Messages.MoveToBin(r.Context(), actorID, r.PathValue("messageID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, msg)
}

// DeletePermanently godoc
// @Summary Delete a message from the caller's Bin
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param messageID path string true "Message ID"
// @Success 200 {object} helpers.APIResponse "data contains the deleted message"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (not in bin)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /messages/{messageID} [delete]
func (c *MessageController) DeletePermanently(w http.ResponseWriter, r *http.Request) {
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	msg, err := c.Messages.DeletePermanently(r.Context(), actorID, r.PathValue("messageID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, msg)
}
