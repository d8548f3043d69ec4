package postgres

// PostgreSQL の SQLSTATE のうちリポジトリで解釈するもの。
const (
	uniqueViolationCode       = "23505"
	foreignKeyViolationCode   = "23503"
	checkViolationCode        = "23514"
	invalidDatetimeFormatCode = "22007"
	datetimeFieldOverflowCode = "22008"
)
