package asaas

import "github.com/shopspring/decimal"

// CustomerParams identify a buyer on the gateway side.
type CustomerParams struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	CPF      string `json:"cpfCnpj"`
	Whatsapp string `json:"mobilePhone,omitempty"`
}

// Customer is the gateway's representation of the buyer, distinct from the
// internal profile record.
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	CPFCnpj string `json:"cpfCnpj"`
}

type customerListResponse struct {
	Data []Customer `json:"data"`
}

// PixParams request a PIX payment for an order.
type PixParams struct {
	OrderID  string
	Customer CustomerParams
	Amount   decimal.Decimal
	DueDate  string
}

// PixPayment carries the payment plus its QR code payload.
type PixPayment struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Payload      string `json:"payload"`
	EncodedImage string `json:"encodedImage"`
}

// CardData are the raw card fields submitted at checkout. Never persisted.
type CardData struct {
	HolderName  string `json:"holderName"`
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"`
	CCV         string `json:"ccv"`
}

// CardHolderInfo is the billing identity the gateway requires for card charges.
type CardHolderInfo struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	CPFCnpj     string `json:"cpfCnpj"`
	PostalCode  string `json:"postalCode"`
	AddressNum  string `json:"addressNumber"`
	MobilePhone string `json:"phone,omitempty"`
}

// CardParams request a credit card payment, optionally in installments.
type CardParams struct {
	OrderID          string
	Customer         CustomerParams
	Card             CardData
	Holder           CardHolderInfo
	Amount           decimal.Decimal
	InstallmentCount int
	ClientIP         string
	DueDate          string
}

// Payment is the gateway payment envelope shared by PIX and card flows.
type Payment struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"externalReference"`
	InvoiceURL        string `json:"invoiceUrl"`
}

type pixQrCodeResponse struct {
	Payload      string `json:"payload"`
	EncodedImage string `json:"encodedImage"`
}

// InstallmentOption is one entry of an installment simulation.
type InstallmentOption struct {
	Count int             `json:"installmentCount"`
	Value decimal.Decimal `json:"installmentValue"`
	Total decimal.Decimal `json:"totalValue"`
}

type createPaymentRequest struct {
	Customer          string           `json:"customer"`
	BillingType       string           `json:"billingType"`
	Value             decimal.Decimal  `json:"value"`
	DueDate           string           `json:"dueDate"`
	ExternalReference string           `json:"externalReference"`
	Description       string           `json:"description,omitempty"`
	RemoteIP          string           `json:"remoteIp,omitempty"`
	InstallmentCount  int              `json:"installmentCount,omitempty"`
	InstallmentValue  *decimal.Decimal `json:"installmentValue,omitempty"`
	CreditCard        *CardData        `json:"creditCard,omitempty"`
	CreditCardHolder  *CardHolderInfo  `json:"creditCardHolderInfo,omitempty"`
}

type simulateRequest struct {
	Value            decimal.Decimal `json:"value"`
	InstallmentCount int             `json:"installmentCount"`
	BillingTypes     []string        `json:"billingTypes"`
}

type simulateResponse struct {
	CreditCard struct {
		Installments []struct {
			InstallmentCount int             `json:"installmentCount"`
			InstallmentValue decimal.Decimal `json:"installmentValue"`
			TotalValue       decimal.Decimal `json:"totalValue"`
		} `json:"installments"`
	} `json:"creditCard"`
}
