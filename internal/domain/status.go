package domain

// BridgeStatus is the control API view of the session.
type BridgeStatus struct {
	Active       bool    `json:"active"`
	Status       string  `json:"status"`
	HasQR        bool    `json:"hasQr"`
	QRCodeString *string `json:"qrCodeString"`
}
