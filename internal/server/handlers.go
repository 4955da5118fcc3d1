package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"invoicer/internal/extract"
	"invoicer/internal/invoice"
	"invoicer/internal/logger"
	"invoicer/internal/render"
)

const invoiceNumberHeader = "X-Invoice-Number"

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="fr">
<head><meta charset="utf-8"><title>Ticket → Facture</title></head>
<body>
<h1>Générer une facture depuis un ticket de caisse</h1>
{{if .ScanEnabled}}
<form action="/api/invoices/scan" method="post" enctype="multipart/form-data">
  <input type="file" name="receipt" accept="image/*" required>
  <button type="submit">Générer la facture PDF</button>
</form>
{{else}}
<p>L'extraction de tickets n'est pas configurée. Envoyez un enregistrement JSON à
<code>POST /api/invoices/render</code>.</p>
{{end}}
</body>
</html>
`))

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, struct{ ScanEnabled bool }{s.extractor != nil}); err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("Failed to render index page")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":       "healthy",
		"scan_enabled": s.extractor != nil,
	})
}

// handleRender renders a JSON record. An optional ?number= fixes the invoice number.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	number := r.URL.Query().Get("number")
	if number != "" && !invoice.ValidNumber(number) {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid invoice number %q, expected YYYYMM-NNNN", number))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes))
	if err != nil {
		writeError(w, r, http.StatusRequestEntityTooLarge, err)
		return
	}

	rec, err := invoice.ParseRecord(body)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	doc, err := s.renderer.Render(rec, number)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writePDF(w, r, doc)
}

// handleScan extracts a record from an uploaded receipt and renders it.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.extractor == nil {
		writeError(w, r, http.StatusServiceUnavailable, errors.New("receipt extraction is not configured"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		writeError(w, r, http.StatusRequestEntityTooLarge, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, errors.New(`missing "receipt" file`))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.ExtractionTimeout)
	defer cancel()

	rec, err := s.extractor.Extract(ctx, extract.Image{
		Data:     data,
		MimeType: header.Header.Get("Content-Type"),
		Name:     header.Filename,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	doc, err := s.renderer.Render(rec, "")
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info().
		Str("file", header.Filename).
		Str("invoice_number", doc.InvoiceNumber).
		Str("total_ttc", doc.Totals.Grand.StringFixed(2)).
		Msg("Receipt converted to invoice")

	writePDF(w, r, doc)
}

// writeFailure maps engine and extraction errors to HTTP statuses.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var structErr *invoice.StructuralInputError
	switch {
	case errors.As(err, &structErr):
		log.Warn().Err(err).Str("field", structErr.Field).Msg("Rejected record")
		writeJSON(w, r, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Field: structErr.Field})
	case errors.Is(err, extract.ErrUnsupportedImage):
		writeError(w, r, http.StatusUnsupportedMediaType, err)
	case errors.Is(err, extract.ErrContextCanceled):
		writeError(w, r, http.StatusGatewayTimeout, err)
	default:
		log.Error().Err(err).Msg("Request failed")
		writeError(w, r, http.StatusInternalServerError, err)
	}
}

func writePDF(w http.ResponseWriter, r *http.Request, doc *render.Document) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", render.FileName(doc.InvoiceNumber)))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Bytes)))
	w.Header().Set(invoiceNumberHeader, doc.InvoiceNumber)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Bytes); err != nil {
		logger.FromContext(r.Context()).Warn().Err(err).Str("invoice_number", doc.InvoiceNumber).Msg("Failed to send PDF")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, r, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Int("status", status).Msg("Failed to write JSON response")
	}
}
