package domain

// RequestHints carries the parts of an inbound request used to guess the
// caller's country.
type RequestHints struct {
	CountryParam   string // explicit ?country=
	RemoteAddr     string // client IP, proxy headers already applied
	AcceptLanguage string
}
