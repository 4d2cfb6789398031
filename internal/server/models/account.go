package models

import "time"

// Icon types for account groups.
const (
	IconTypeText = iota
	IconTypeImage
	IconTypeInstalledAppLogo
	IconTypeSNS
)

// SNS is a well-known service (seeded reference data) that account groups
// can link to instead of carrying their own name/URL.
type SNS struct {
	ID             int16
	Name           string
	AppPackageName string
	WebURL         string
}

// AccountGroup bundles a user's credentials for one service. GroupName is
// unique per user, and so is the SNS link when present.
type AccountGroup struct {
	ID             string
	UserID         string
	SNSID          *int16
	GroupName      string
	AppPackageName *string
	WebURL         *string
	IconType       int16
	IconImageURL   *string
	IsFavorite     bool
	CreatedAt      time.Time
}

// AccountDetail is a single credential inside a group. The three cipher
// fields hold base64(iv || ciphertext) values produced by cryptox.Cipher;
// PINCipher and PatternCipher are absent (nil) when the user never set one.
type AccountDetail struct {
	ID              string
	GroupID         string
	LoginID         string
	PasswordCipher  string
	PINCipher       *string
	PatternCipher   *string
	Memo            string
	Views           int
	CreatedAt       time.Time
	LastConfirmedAt time.Time
}
