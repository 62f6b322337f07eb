package permissions

// Permission is the visibility rule of one product.
type Permission struct {
	ID          int64       `json:"id"`
	ProductID   int64       `json:"product_id"`
	GlobalAllow bool        `json:"global_allow"`
	Exceptions  []Exception `json:"exceptions"`
}

// Exception inverts GlobalAllow for a single address.
type Exception struct {
	ID           int64 `json:"id"`
	PermissionID int64 `json:"product_permission_id"`
	AddressID    int64 `json:"address_id"`
}

// Decision records why a product was kept or dropped.
type Decision struct {
	Visible bool
	// Duplicates is set when more than one exception matched the address.
	Duplicates bool
}
