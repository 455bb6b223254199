package enums

// ProductStatus marks whether a product can be sold.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "ativo"
	ProductStatusInactive ProductStatus = "inativo"
	ProductStatusDraft    ProductStatus = "rascunho"
)

// String implements fmt.Stringer.
func (p ProductStatus) String() string {
	return string(p)
}

// IsActive reports whether the product is sellable.
func (p ProductStatus) IsActive() bool {
	return p == ProductStatusActive
}
