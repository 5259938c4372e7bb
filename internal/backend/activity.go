package backend

import (
	"fmt"
	"io"
	"net/http"

	"project-tracker/internal/domain"
	apperrors "project-tracker/internal/errors"
	"project-tracker/internal/permission"
	"project-tracker/internal/repository/rest"
	"project-tracker/internal/validation"
)

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	task, err := s.loadTask(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	comments, err := s.store.ListComments(r.Context(), task.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !permission.CanAddComment(currentUser(r)) {
		s.writeError(w, r, apperrors.NewPermissionError("comment", "task"))
		return
	}

	var req rest.CommentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validation.NewTaskValidator().ValidateComment(id, req.Text); err != nil {
		s.writeError(w, r, validationError(err))
		return
	}

	comment, err := s.store.AddComment(r.Context(), id, req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	comment, err := s.store.GetComment(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !permission.CanDeleteComment(currentUser(r), *comment) {
		s.writeError(w, r, apperrors.NewPermissionError("delete", "comment"))
		return
	}
	if err := s.store.DeleteComment(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAttachments(w http.ResponseWriter, r *http.Request) {
	if !permission.CanViewAttachments(currentUser(r)) {
		s.writeError(w, r, apperrors.NewPermissionError("view", "attachments"))
		return
	}
	task, err := s.loadTask(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	attachments, err := s.store.ListAttachments(r.Context(), task.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	writeJSON(w, http.StatusOK, attachments)
}

// handleUploadAttachment reads the multipart field "file", bounded by
// MaxUploadBytes.
func (s *Server) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	task, err := s.loadTask(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !permission.CanUploadAttachments(currentUser(r), *task) {
		s.writeError(w, r, apperrors.NewPermissionError("upload", "task"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, apperrors.NewInvalidInputError("file", "", err.Error()))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	att, err := s.store.UploadAttachment(r.Context(), task.ID, header.Filename, contentType, file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, att)
}

func (s *Server) handleDownloadAttachment(w http.ResponseWriter, r *http.Request) {
	if !permission.CanDownloadAttachment(currentUser(r)) {
		s.writeError(w, r, apperrors.NewPermissionError("download", "attachment"))
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	att, err := s.store.GetAttachment(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := s.store.DownloadAttachment(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", att.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Name))
	if _, err := io.Copy(w, body); err != nil {
		s.logger.Warn("attachment download interrupted", "attachment", id, "error", err)
	}
}

func (s *Server) handleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	att, err := s.store.GetAttachment(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !permission.CanDeleteAttachment(currentUser(r), *att) {
		s.writeError(w, r, apperrors.NewPermissionError("delete", "attachment"))
		return
	}
	if err := s.store.DeleteAttachment(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
