package domain

// AuthData is the credential record minted when the app is installed into a
// Saleor instance. SaleorAPIURL is the record's identity: one record per
// instance, writes replace wholesale.
type AuthData struct {
	SaleorAPIURL string `json:"saleorApiUrl"`
	Domain       string `json:"domain,omitempty"`
	Token        string `json:"token"`
	AppID        string `json:"appId"`
	JWKS         string `json:"jwks,omitempty"`
}
