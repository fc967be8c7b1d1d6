// Package httpapi exposes the ingestion engine over HTTP.
//
// Each intake route maps to one job source: JSON submissions are direct-api,
// multipart uploads are file-upload (or batch-file), raw webhook bodies are
// webhook, and the /v1/streams routes drive stream jobs.
package httpapi
