package internal

import (
	"encoding/json"
	"strconv"
)

type DocumentSource string

const (
	SourceText  DocumentSource = "text"
	SourceHTML  DocumentSource = "html"
	SourceXLSX  DocumentSource = "xlsx"
	SourcePDF   DocumentSource = "pdf"
	SourceEmail DocumentSource = "email"
)

// QuantityUnit is a parsed quantity/unit pair. Quantity is nil when no number
// could be recovered; Raw then holds the original fragment untouched.
type QuantityUnit struct {
	Quantity *float64
	Raw      string
	Unit     string
}

// Text renders the quantity the way it is stored: the number when there is
// one, the raw fragment otherwise.
func (q QuantityUnit) Text() string {
	if q.Quantity != nil {
		return strconv.FormatFloat(*q.Quantity, 'f', -1, 64)
	}
	return q.Raw
}

func (q QuantityUnit) IsNumeric() bool {
	return q.Quantity != nil
}

func (q QuantityUnit) MarshalJSON() ([]byte, error) {
	var quantity any
	switch {
	case q.Quantity != nil:
		quantity = *q.Quantity
	case q.Raw != "":
		quantity = q.Raw
	}
	return json.Marshal(struct {
		Quantity any    `json:"quantity"`
		Unit     string `json:"unit"`
	}{Quantity: quantity, Unit: q.Unit})
}

type Item struct {
	LineNo int          `json:"lineNo"`
	Raw    string       `json:"raw"`
	Name   string       `json:"name"`
	Qty    QuantityUnit `json:"qty"`
	Price  *float64     `json:"price,omitempty"`
}

type Slip struct {
	SlipNo string  `json:"slipNo"`
	Vendor *string `json:"vendor"`
	Items  []Item  `json:"items"`
}

type Ingredient struct {
	ID       int    `json:"id" csv:"id"`
	Recipe   string `json:"recipe" csv:"recipe"`
	Name     string `json:"name" csv:"name"`
	Quantity string `json:"quantity" csv:"quantity"`
	Unit     string `json:"unit" csv:"unit"`
}

type IngredientChange struct {
	Before  Ingredient   `json:"before"`
	After   Ingredient   `json:"after"`
	Parsed  QuantityUnit `json:"parsed"`
	Changed bool         `json:"changed"`
}

type DocumentRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type SlipExportRow struct {
	SlipNo   string `csv:"slip_no"`
	Vendor   string `csv:"vendor"`
	LineNo   int    `csv:"line_no"`
	RawLine  string `csv:"raw_line"`
	ItemName string `csv:"item_name"`
	Quantity string `csv:"quantity"`
	Unit     string `csv:"unit"`
	Price    string `csv:"price"`
}
