package settings

import "strconv"

const (
	KeyBarName      = "bar_name"
	KeyTagline      = "tagline"
	KeyCurrency     = "currency"
	KeyContactEmail = "contact_email"
	KeyAddress      = "address"
	KeyInstagram    = "instagram"
	KeyPrimaryColor = "primary_color"
	KeyShowPrices   = "show_prices"
)

// SiteSettings is the public branding of the bar.
type SiteSettings struct {
	BarName      string `json:"barName"`
	Tagline      string `json:"tagline"`
	Currency     string `json:"currency"`
	ContactEmail string `json:"contactEmail"`
	Address      string `json:"address"`
	Instagram    string `json:"instagram"`
	PrimaryColor string `json:"primaryColor"`
	ShowPrices   bool   `json:"showPrices"`
}

// Defaults apply to keys that were never stored.
func Defaults() SiteSettings {
	return SiteSettings{
		BarName:      "Carta",
		Currency:     "EUR",
		PrimaryColor: "#7c3aed",
		ShowPrices:   true,
	}
}

// SiteSettingsInput is a partial update; nil fields are left alone.
type SiteSettingsInput struct {
	BarName      *string `json:"barName" validate:"omitempty,min=1,max=128"`
	Tagline      *string `json:"tagline" validate:"omitempty,max=256"`
	Currency     *string `json:"currency" validate:"omitempty,iso4217"`
	ContactEmail *string `json:"contactEmail" validate:"omitempty,email"`
	Address      *string `json:"address" validate:"omitempty,max=256"`
	Instagram    *string `json:"instagram" validate:"omitempty,max=64"`
	PrimaryColor *string `json:"primaryColor" validate:"omitempty,hexcolor"`
	ShowPrices   *bool   `json:"showPrices"`
}

// ProfileInput edits the signed-in user. NewPassword requires CurrentPassword.
type ProfileInput struct {
	DisplayName     *string `json:"displayName" validate:"omitempty,min=1,max=128"`
	Email           *string `json:"email" validate:"omitempty,email"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     string  `json:"newPassword"`
}

func fromValues(values map[string]string) SiteSettings {
	out := Defaults()
	for key, value := range values {
		switch key {
		case KeyBarName:
			out.BarName = value
		case KeyTagline:
			out.Tagline = value
		case KeyCurrency:
			out.Currency = value
		case KeyContactEmail:
			out.ContactEmail = value
		case KeyAddress:
			out.Address = value
		case KeyInstagram:
			out.Instagram = value
		case KeyPrimaryColor:
			out.PrimaryColor = value
		case KeyShowPrices:
			if parsed, err := strconv.ParseBool(value); err == nil {
				out.ShowPrices = parsed
			}
		}
	}
	return out
}

func (in SiteSettingsInput) values() map[string]string {
	out := map[string]string{}
	put := func(key string, value *string) {
		if value != nil {
			out[key] = *value
		}
	}
	put(KeyBarName, in.BarName)
	put(KeyTagline, in.Tagline)
	put(KeyCurrency, in.Currency)
	put(KeyContactEmail, in.ContactEmail)
	put(KeyAddress, in.Address)
	put(KeyInstagram, in.Instagram)
	put(KeyPrimaryColor, in.PrimaryColor)
	if in.ShowPrices != nil {
		out[KeyShowPrices] = strconv.FormatBool(*in.ShowPrices)
	}
	return out
}
