package documents

import "time"

// DocType is the closed set of identity papers the vault accepts.
type DocType string

const (
	DocTypeMarkSheet   DocType = "Mark Sheet"
	DocTypePANCard     DocType = "PAN Card"
	DocTypePassport    DocType = "Passport"
	DocTypeAadhaarCard DocType = "Aadhaar Card"
)

// DocTypes lists the accepted document types in form order.
var DocTypes = []DocType{DocTypeMarkSheet, DocTypePANCard, DocTypePassport, DocTypeAadhaarCard}

// Valid reports whether t is one of DocTypes.
func (t DocType) Valid() bool {
	for _, known := range DocTypes {
		if t == known {
			return true
		}
	}
	return false
}

// StatusPendingReview is the status of every freshly uploaded document.
const StatusPendingReview = "pending_review"

// Document is the metadata record for one stored blob. DownloadURL is a
// cached copy from upload time and is never used to serve reads.
type Document struct {
	ID          string
	OwnerID     string
	DocType     DocType
	IDNumber    string
	FileName    string
	FileType    string
	FileSize    int64
	FilePath    string
	DownloadURL string
	Status      string
	PageCount   int
	CreatedAt   time.Time
	LastUpdated time.Time
}

// ListedDocument is a record decorated with a freshly resolved download URL.
type ListedDocument struct {
	Document
	URL string
}

// ListResult is the reconciled listing for one owner.
type ListResult struct {
	Documents []ListedDocument
	// Skipped counts records dropped because their blob URL could not be resolved.
	Skipped int
}

// ShareLink is what the client copies or shows for manual copying.
type ShareLink struct {
	URL      string
	FileName string
	DocType  DocType
}

// FileInput is a file selected for upload or replacement. Content may be nil
// when Size alone already disqualifies the file.
type FileInput struct {
	Name        string
	ContentType string
	Size        int64
	Content     []byte
}

// UploadInput is the upload form.
type UploadInput struct {
	DocType  DocType
	IDNumber string
	File     *FileInput
}
