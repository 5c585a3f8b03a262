package checkout

import (
	"strconv"

	"github.com/calliehq/bramble/internal/domain"
)

// Payment intent metadata keys. The metadata is the only state shared
// between the browser that confirmed the payment and the webhook that
// settles it, so everything an order needs is staged here before the
// shopper is handed to the payment provider.
const (
	metaKeyBag          = "bag"
	metaKeyFullName     = "full_name"
	metaKeyEmail        = "email"
	metaKeyPhone        = "phone"
	metaKeyAddress1     = "address1"
	metaKeyAddress2     = "address2"
	metaKeyCity         = "city"
	metaKeyCounty       = "county"
	metaKeyPostcode     = "postcode"
	metaKeyCountry      = "country"
	metaKeySaveInfo     = "save_info"
	metaKeyProfileID    = "profile_id"
	metaKeySessionToken = "session_token"
)

// StageMetadata builds the metadata map staged on the payment intent
// before the shopper confirms payment.
func StageMetadata(bag domain.Bag, data *domain.CheckoutData, profileID *int64, sessionToken string) map[string]string {
	md := map[string]string{
		metaKeyBag:          string(bag.JSON()),
		metaKeySessionToken: sessionToken,
	}

	if data != nil {
		md[metaKeyFullName] = data.FullName
		md[metaKeyEmail] = data.Email
		md[metaKeyPhone] = data.Phone
		md[metaKeyAddress1] = data.Address1
		md[metaKeyAddress2] = data.Address2
		md[metaKeyCity] = data.City
		md[metaKeyCounty] = data.County
		md[metaKeyPostcode] = data.Postcode
		md[metaKeyCountry] = data.Country
		md[metaKeySaveInfo] = strconv.FormatBool(data.SaveInfo)
	}

	if profileID != nil {
		md[metaKeyProfileID] = strconv.FormatInt(*profileID, 10)
	}

	return md
}

// StagedCheckout is the checkout state recovered from intent metadata.
type StagedCheckout struct {
	Bag          domain.Bag
	Data         *domain.CheckoutData
	ProfileID    *int64
	SessionToken string
}

// RecoverMetadata extracts staged checkout state from intent metadata.
// Returns ok=false when no bag was staged, meaning the metadata update
// before confirmation never landed and the session cache is the only
// remaining source of truth.
func RecoverMetadata(md map[string]string) (*StagedCheckout, bool) {
	raw, exists := md[metaKeyBag]
	if !exists || raw == "" {
		return nil, false
	}

	staged := &StagedCheckout{
		Bag:          domain.ParseBag([]byte(raw)),
		SessionToken: md[metaKeySessionToken],
	}

	saveInfo, _ := strconv.ParseBool(md[metaKeySaveInfo])
	staged.Data = &domain.CheckoutData{
		FullName: md[metaKeyFullName],
		Email:    md[metaKeyEmail],
		Phone:    md[metaKeyPhone],
		Address1: md[metaKeyAddress1],
		Address2: md[metaKeyAddress2],
		City:     md[metaKeyCity],
		County:   md[metaKeyCounty],
		Postcode: md[metaKeyPostcode],
		Country:  md[metaKeyCountry],
		SaveInfo: saveInfo,
	}

	if raw, exists := md[metaKeyProfileID]; exists && raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			staged.ProfileID = &id
		}
	}

	return staged, true
}
