package gateway

// PaymentRecord is the gateway's view of a payment. ExternalReference carries
// the cart id the payment was created for and is the only correlation between
// a webhook delivery and the commerce store.
type PaymentRecord struct {
	ID                 string              `json:"id"`
	Status             *string             `json:"status"`
	PaymentMethodID    string              `json:"payment_method_id"`
	ExternalReference  string              `json:"external_reference"`
	TransactionAmount  float64             `json:"transaction_amount"`
	PointOfInteraction *PointOfInteraction `json:"point_of_interaction,omitempty"`
}

type PointOfInteraction struct {
	TransactionData *TransactionData `json:"transaction_data,omitempty"`
}

type TransactionData struct {
	QRCode       string `json:"qr_code,omitempty"`
	QRCodeBase64 string `json:"qr_code_base64,omitempty"`
}

// PaymentRequest is the create-payment body. Optional card fields are pointers
// so method variants that do not use them omit them from the JSON entirely.
type PaymentRequest struct {
	Token             string  `json:"token,omitempty"`
	Installments      *int    `json:"installments,omitempty"`
	IssuerID          *int    `json:"issuer_id,omitempty"`
	Description       string  `json:"description,omitempty"`
	PaymentMethodID   string  `json:"payment_method_id"`
	ExternalReference string  `json:"external_reference"`
	TransactionAmount float64 `json:"transaction_amount"`
	NotificationURL   string  `json:"notification_url,omitempty"`
	Payer             *Payer  `json:"payer,omitempty"`
}

type Payer struct {
	Email          string          `json:"email,omitempty"`
	FirstName      string          `json:"first_name,omitempty"`
	LastName       string          `json:"last_name,omitempty"`
	Phone          *Phone          `json:"phone,omitempty"`
	Identification *Identification `json:"identification,omitempty"`
	Address        *Address        `json:"address,omitempty"`
}

type Phone struct {
	Number string `json:"number,omitempty"`
}

type Identification struct {
	Number string `json:"number,omitempty"`
	Type   string `json:"type,omitempty"`
}

type Address struct {
	City       string `json:"city,omitempty"`
	ZipCode    string `json:"zip_code,omitempty"`
	StreetName string `json:"street_name,omitempty"`
}
