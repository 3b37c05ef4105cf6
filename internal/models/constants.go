package models

const (
	MetaChunkStart = "chunk_start"
	MetaChunkEnd   = "chunk_end"
)

// Pandas-style column dtypes reported in a dataset schema.
const (
	TypeInt64   = "int64"
	TypeFloat64 = "float64"
	TypeBool    = "bool"
	TypeObject  = "object"
)

// File types the processor dispatches on.
const (
	ExtCSV  = ".csv"
	ExtPDF  = ".pdf"
	ExtMD   = ".md"
	ExtTXT  = ".txt"
	ExtXLS  = ".xls"
	ExtXLSX = ".xlsx"
)
