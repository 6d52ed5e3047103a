package record

import "time"

// Record is one archived game record.
type Record struct {
	ID         string    `json:"record_id" bson:"record_id"`
	BlackName  string    `json:"black_name" bson:"black_name"`
	WhiteName  string    `json:"white_name" bson:"white_name"`
	Date       string    `json:"date" bson:"date"`
	Result     string    `json:"result" bson:"result"`
	BoardSize  int       `json:"board_size" bson:"board_size"`
	Sgf        string    `json:"sgf" bson:"sgf"`
	UploadedAt time.Time `json:"uploaded_at" bson:"uploaded_at"`
}

// Summary is the archive listing entry (no SGF payload).
type Summary struct {
	ID        string `json:"record_id" bson:"record_id"`
	BlackName string `json:"black_name" bson:"black_name"`
	WhiteName string `json:"white_name" bson:"white_name"`
	Date      string `json:"date" bson:"date"`
	Result    string `json:"result" bson:"result"`
}

// ArchiveResponse is one page of the archive.
type ArchiveResponse struct {
	Records []Summary `json:"records"`
	Page    int       `json:"page"`
}
