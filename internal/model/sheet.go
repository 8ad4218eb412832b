package model

import "time"

// SheetFile is the metadata record for an uploaded spreadsheet. The file
// contents live on disk under the uploads directory; only CSV files get
// header/row counts, cell-level processing is out of scope here.
type SheetFile struct {
	ID           string    `json:"id" db:"id"`
	Filename     string    `json:"filename" db:"filename"` // stored name on disk
	OriginalName string    `json:"originalName" db:"original_name"`
	Mimetype     string    `json:"mimetype" db:"mimetype"`
	SizeBytes    int64     `json:"size" db:"size_bytes"`
	Path         string    `json:"-" db:"path"` // server-local, never expose
	HeaderCount  int       `json:"headerCount" db:"header_count"`
	RowCount     int       `json:"rowCount" db:"row_count"`
	UploadedBy   string    `json:"uploadedBy" db:"uploaded_by"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
