package model

// Orientation of the rendered page.
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

func (o Orientation) Valid() bool {
	return o == OrientationPortrait || o == OrientationLandscape
}

// PagePreset is a named paper size understood by the converter binary.
type PagePreset string

const (
	PresetA4      PagePreset = "A4"
	PresetLetter  PagePreset = "LETTER"
	PresetLegal   PagePreset = "LEGAL"
	PresetA3      PagePreset = "A3"
	PresetTabloid PagePreset = "TABLOID"
)

func (p PagePreset) Valid() bool {
	switch p {
	case PresetA4, PresetLetter, PresetLegal, PresetA3, PresetTabloid:
		return true
	}
	return false
}

// PageSize is a custom paper size in millimetres. Ignored when a preset is
// given.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PdfMargins in millimetres.
type PdfMargins struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// PdfRequest is the renderer contract: HTML in, PDF bytes out.
type PdfRequest struct {
	// FileName is a logical name used for temp files, logs and the stored
	// copy; it is not the output path.
	FileName string `json:"file_name"`
	HTML     string `json:"html" binding:"required"`

	// Orientation defaults to portrait.
	Orientation *Orientation `json:"orientation"`

	// PageSizePreset wins over CustomPageSize; with neither, A4.
	PageSizePreset *PagePreset `json:"page_size_preset"`
	CustomPageSize *PageSize   `json:"custom_page_size"`

	// Margins default to 10mm on every side.
	Margins *PdfMargins `json:"margins"`

	// Scale defaults to 1.0.
	Scale *float64 `json:"scale"`

	// StoreLocalPDF additionally persists the result under files/pdfs.
	StoreLocalPDF bool `json:"store_local_pdf"`
}

// PdfResponse is the JSON error shape for the PDF endpoint.
type PdfResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
