package domain

// SeriesMetadata describes a registered series: what it measures and how often.
// Corresponds to the series_metadata table in PostgreSQL.
type SeriesMetadata struct {
	SeriesID  string    // PK, series code
	Name      string    // human-readable name, e.g. "Effective Federal Funds Rate"
	Frequency Frequency // native observation frequency
	Units     string    // e.g. "percent", "index level"
	Source    string    // where the data came from, e.g. "FRED"
}
