package documents

import (
	"time"

	"github.com/dustin/go-humanize"
)

type documentResponse struct {
	ID            string     `json:"id"`
	DocType       DocType    `json:"docType"`
	IDNumber      string     `json:"idNumber"`
	FileName      string     `json:"fileName"`
	FileType      string     `json:"fileType"`
	FileSize      int64      `json:"fileSize"`
	FileSizeHuman string     `json:"fileSizeHuman"`
	Status        string     `json:"status"`
	PageCount     int        `json:"pageCount,omitempty"`
	DownloadURL   string     `json:"downloadUrl,omitempty"`
	CreatedAt     *time.Time `json:"createdAt"`
	LastUpdated   time.Time  `json:"lastUpdated"`
}

type listResponse struct {
	Documents []documentResponse `json:"documents"`
	Skipped   int                `json:"skipped"`
}

type shareResponse struct {
	URL      string  `json:"url"`
	FileName string  `json:"fileName"`
	DocType  DocType `json:"docType"`
}

type policyResponse struct {
	DocTypes         []DocType `json:"docTypes"`
	AllowedFileTypes []string  `json:"allowedFileTypes"`
	MaxFileSize      int64     `json:"maxFileSize"`
	MaxFileSizeHuman string    `json:"maxFileSizeHuman"`
	IDNumberLength   int       `json:"idNumberLength"`
}

func toResponse(doc Document, url string) documentResponse {
	resp := documentResponse{
		ID:            doc.ID,
		DocType:       doc.DocType,
		IDNumber:      MaskIDNumber(doc.IDNumber),
		FileName:      doc.FileName,
		FileType:      doc.FileType,
		FileSize:      doc.FileSize,
		FileSizeHuman: humanize.IBytes(uint64(max(doc.FileSize, 0))),
		Status:        doc.Status,
		PageCount:     doc.PageCount,
		DownloadURL:   url,
		LastUpdated:   doc.LastUpdated,
	}
	if !doc.CreatedAt.IsZero() {
		created := doc.CreatedAt
		resp.CreatedAt = &created
	}
	return resp
}

func toListResponse(res ListResult) listResponse {
	out := listResponse{Documents: make([]documentResponse, 0, len(res.Documents)), Skipped: res.Skipped}
	for _, d := range res.Documents {
		out.Documents = append(out.Documents, toResponse(d.Document, d.URL))
	}
	return out
}

func currentPolicy() policyResponse {
	return policyResponse{
		DocTypes:         DocTypes,
		AllowedFileTypes: AllowedFileTypes,
		MaxFileSize:      MaxFileSize,
		MaxFileSizeHuman: humanize.IBytes(uint64(MaxFileSize)),
		IDNumberLength:   IDNumberLength,
	}
}
