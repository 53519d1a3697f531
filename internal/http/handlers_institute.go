package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"tuition/internal/core"
)

var errUnsupportedImage = errors.New("unsupported image type")

type instituteView struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	Contact       string `json:"contact"`
	LogoPath      string `json:"logo_path,omitempty"`
	SignaturePath string `json:"signature_path,omitempty"`
}

func viewInstitute(info core.InstituteInfo) instituteView {
	return instituteView{
		Name:          info.Name,
		Address:       info.Address,
		Contact:       info.Contact,
		LogoPath:      info.LogoPath,
		SignaturePath: info.SignaturePath,
	}
}

func (s *Server) handleGetInstitute(w http.ResponseWriter, r *http.Request) {
	info, err := s.repo.GetInstituteInfo(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"institute": viewInstitute(info)})
}

type instituteRequest struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
	Contact string `json:"contact"`
}

// handleUpdateInstitute rewrites the singleton institute row. A
// multipart body may carry replacement logo and signature images
// alongside the text fields; a JSON body updates text only.
func (s *Server) handleUpdateInstitute(w http.ResponseWriter, r *http.Request) {
	info, err := s.repo.GetInstituteInfo(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
			writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "malformed multipart body"})
			return
		}
		name := sanitizeInput(r.FormValue("name"))
		if name == "" {
			writeJSON(w, r, http.StatusUnprocessableEntity, errorResponse{Error: "name is required"})
			return
		}
		info.Name = name
		info.Address = sanitizeInput(r.FormValue("address"))
		info.Contact = sanitizeInput(r.FormValue("contact"))

		for field, dest := range map[string]*string{
			"logo":      &info.LogoPath,
			"signature": &info.SignaturePath,
		} {
			file, header, err := r.FormFile(field)
			switch {
			case err == http.ErrMissingFile:
				continue
			case err != nil:
				writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: field + " upload unreadable"})
				return
			}
			path, err := s.saveInstituteAsset(field, file, header)
			file.Close()
			if err == errUnsupportedImage {
				writeJSON(w, r, http.StatusUnprocessableEntity, errorResponse{Error: field + " must be jpg or png"})
				return
			}
			if err != nil {
				writeError(w, r, err)
				return
			}
			if *dest != "" {
				_ = os.Remove(*dest)
			}
			*dest = path
		}
	} else {
		var req instituteRequest
		if err := s.decodeJSON(r, &req); err != nil {
			writeBadRequest(w, r, err)
			return
		}
		info.Name = sanitizeInput(req.Name)
		info.Address = sanitizeInput(req.Address)
		info.Contact = sanitizeInput(req.Contact)
	}

	if err := s.repo.UpdateInstituteInfo(r.Context(), info); err != nil {
		writeError(w, r, err)
		return
	}
	s.documentCache.Purge()
	writeJSON(w, r, http.StatusOK, map[string]any{"institute": viewInstitute(info)})
}

func (s *Server) saveInstituteAsset(kind string, file multipart.File, header *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png":
	default:
		return "", errUnsupportedImage
	}
	if err := os.MkdirAll(s.cfg.LogoDir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(s.cfg.LogoDir, fmt.Sprintf("%s%s", kind, ext))
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(dest)
		return "", err
	}
	return dest, out.Close()
}
