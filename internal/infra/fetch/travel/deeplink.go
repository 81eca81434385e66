package travel

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

const (
	aviasalesBase  = "https://search.aviasales.com/flights"
	hotellookBase  = "https://search.hotellook.com/search/"
	activitiesBase = "https://travelpayouts.com/activities/search/"
)

// Linker builds affiliate deep links carrying the marker and a click id.
// With a secret the click id is an HMAC and the user id stays out of the
// link. Without one the dev fallback embeds the user id in plain text.
type Linker struct {
	Marker string
	Secret string

	now func() time.Time
}

func NewLinker(marker, secret string) *Linker {
	return &Linker{Marker: marker, Secret: secret, now: time.Now}
}

// ClickID derives an opaque click identifier. With no secret it falls back
// to a readable dev id of the form dev-<userID>-<unix ms>.
func (l *Linker) ClickID(userID string, meta map[string]string) string {
	ts := l.now().UnixMilli()
	if l.Secret == "" {
		return fmt.Sprintf("dev-%s-%d", userID, ts)
	}
	payload, _ := json.Marshal(struct {
		U  string            `json:"u"`
		M  map[string]string `json:"m"`
		TS int64             `json:"ts"`
	}{userID, meta, ts})

	mac := hmac.New(sha256.New, []byte(l.Secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Attach sets marker and click_id on raw. Unparseable URLs are returned
// unchanged.
func (l *Linker) Attach(raw, userID string, meta map[string]string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return raw
	}
	q := u.Query()
	if l.Marker != "" {
		q.Set("marker", l.Marker)
	}
	if userID != "" {
		q.Set("click_id", l.ClickID(userID, meta))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// FlightLink points at an Aviasales search for the route and dates.
func (l *Linker) FlightLink(origin, destination, depart, ret, userID string) string {
	q := url.Values{}
	q.Set("origin_iata", origin)
	q.Set("destination_iata", destination)
	q.Set("depart_date", depart)
	if ret != "" {
		q.Set("return_date", ret)
	}
	meta := map[string]string{"origin": origin, "destination": destination, "depart": depart}
	return l.Attach(aviasalesBase+"?"+q.Encode(), userID, meta)
}

// HotelLink points at a Hotellook city search.
func (l *Linker) HotelLink(city, checkIn, checkOut, hotel, userID string) string {
	q := url.Values{}
	q.Set("checkIn", checkIn)
	q.Set("checkOut", checkOut)
	meta := map[string]string{"city": city, "checkIn": checkIn, "checkOut": checkOut}
	if hotel != "" {
		meta["hotel"] = hotel
	}
	return l.Attach(hotellookBase+url.PathEscape(city)+"?"+q.Encode(), userID, meta)
}

// ActivityLink points at the provider's activity page, or a city search
// when the provider gave none.
func (l *Linker) ActivityLink(raw, city, date, userID string) string {
	if raw == "" {
		raw = activitiesBase + url.PathEscape(city)
	}
	return l.Attach(raw, userID, map[string]string{"city": city, "date": date})
}

// Restamp replaces the click id on a link built for another caller. With an
// empty userID the click id is removed.
func (l *Linker) Restamp(raw, userID string, meta map[string]string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return raw
	}
	q := u.Query()
	q.Del("click_id")
	u.RawQuery = q.Encode()
	return l.Attach(u.String(), userID, meta)
}
