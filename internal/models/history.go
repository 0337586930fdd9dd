package models

// ExportRecord is one successful export of a case.
type ExportRecord struct {
	ID       int64  `db:"id"`
	CaseID   string `db:"case_id"`
	CaseName string `db:"case_name"`
	// Path is where the artifact was written.
	Path string `db:"path"`
	Size int64  `db:"size"`
	// Checksum is the hex encoded xxhash64 trailer of the artifact.
	Checksum     string `db:"checksum"`
	Instructions int64  `db:"instructions"`
	Warnings     int64  `db:"warnings"`
	Created      string `db:"created"`
}

// RecentProject is a project file that was recently opened or saved.
type RecentProject struct {
	Path     string `db:"path"`
	CaseID   string `db:"case_id"`
	CaseName string `db:"case_name"`
	Opened   string `db:"opened"`
}
