package paymentdetails

// PaymentMethod is a manual payment channel. AccountNumber and Instructions are optional.
type PaymentMethod struct {
	Code          string `yaml:"code" json:"code"`
	Label         string `yaml:"label" json:"label"`
	Image         string `yaml:"image" json:"image"`
	AccountNumber string `yaml:"accountNumber,omitempty" json:"accountNumber,omitempty"`
	Instructions  string `yaml:"instructions,omitempty" json:"instructions,omitempty"`
}

// PaymentDetails tells the buyer where to send the money
type PaymentDetails struct {
	Title        string `json:"title"`
	Value        string `json:"value"`
	Instructions string `json:"instructions,omitempty"`
}

type detailsRequest struct {
	Method string `form:"method"`
}

type catalogFile struct {
	Methods []PaymentMethod `yaml:"methods"`
}
