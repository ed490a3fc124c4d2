package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/alkime/voxrelay/internal/artifact"
	"github.com/alkime/voxrelay/internal/failure"
	"github.com/alkime/voxrelay/internal/validate"
	"github.com/gin-gonic/gin"
)

// processResponse is the body of every /api/v1/process reply.
type processResponse struct {
	Transcript string `json:"transcript,omitempty"`
	Error      string `json:"error,omitempty"`
	Kind       string `json:"kind,omitempty"`
}

// handleProcess accepts a multipart upload ("file" and "email") with the
// transcription key as a bearer token and runs the pipeline synchronously.
func (s *Server) handleProcess(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxUploadBytes)

	creds := validate.Credentials{
		APIKey: bearerToken(c.GetHeader("Authorization")),
		Email:  c.PostForm("email"),
	}

	if err := creds.Check(); err != nil {
		s.fail(c, "", err)

		return
	}

	audio, err := readUpload(c)
	if err != nil {
		s.fail(c, "", err)

		return
	}

	transcript, err := s.processor.Run(c.Request.Context(), creds, audio, nil)
	if err != nil {
		s.fail(c, transcript, failure.Classify(err))

		return
	}

	c.JSON(http.StatusOK, processResponse{Transcript: transcript}) //nolint:exhaustruct // success has no error
}

func (s *Server) fail(c *gin.Context, transcript string, err error) {
	s.logger.Warn("process request failed", "kind", failure.Code(err), "error", err)

	c.JSON(statusFor(err), processResponse{
		Transcript: transcript,
		Error:      err.Error(),
		Kind:       failure.Code(err),
	})
}

func statusFor(err error) int {
	switch failure.Kind(err) {
	case failure.ErrValidationFailed:
		return http.StatusBadRequest
	case failure.ErrTranscriptionFailed, failure.ErrRelayFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func readUpload(c *gin.Context) (artifact.Artifact, error) {
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return artifact.Artifact{}, fmt.Errorf("%w: upload exceeds %d bytes", failure.ErrValidationFailed, tooLarge.Limit)
		}

		return artifact.Artifact{}, fmt.Errorf("%w: file is required", failure.ErrValidationFailed)
	}

	f, err := header.Open()
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("failed to read upload: %w", err)
	}

	if len(data) == 0 {
		return artifact.Artifact{}, fmt.Errorf("%w: file is empty", failure.ErrValidationFailed)
	}

	mimeType, filename := uploadType(header.Filename)

	return artifact.Artifact{Data: data, MIMEType: mimeType, Filename: filename}, nil
}

// uploadType maps the client's file name onto the names the transcription
// service is sent. Anything not recognizably mp3 is treated as webm/opus.
func uploadType(name string) (mimeType, filename string) {
	if strings.EqualFold(filepath.Ext(name), ".mp3") {
		return artifact.MIMETypeMPEG, "recording.mp3"
	}

	return artifact.MIMETypeWebMOpus, "recording.webm"
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}

	return strings.TrimSpace(header[len(prefix):])
}
