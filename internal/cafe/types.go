// Package cafe serves the reference data behind live answers: menu,
// business hours, facilities and general info. Data comes from a JSON file
// that is schema-checked on load and can be reloaded while the server runs.
package cafe

// Data is the whole cafe data file.
type Data struct {
	Info          Info          `json:"cafeInfo"`
	BusinessHours BusinessHours `json:"businessHours"`
	Menu          Menu          `json:"menu"`
	Facilities    Facilities    `json:"facilities"`
}

// Info is general contact information.
type Info struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	SNS     SNS    `json:"sns"`
}

// SNS holds social channel handles.
type SNS struct {
	Instagram    string `json:"instagram"`
	KakaoChannel string `json:"kakao_channel"`
}

// BusinessHours holds the weekly schedule.
type BusinessHours struct {
	// Regular is keyed by weekday name, e.g. "월요일".
	Regular      map[string]DayHours `json:"regular"`
	Holidays     []Holiday           `json:"holidays"`
	SpecialNotes string              `json:"specialNotes"`
}

// DayHours is one day's opening window as "HH:MM" strings.
type DayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Holiday is a closed date in YYYY-MM-DD form.
type Holiday struct {
	Date        string `json:"date"`
	Description string `json:"description"`
}

// Menu groups items by category.
type Menu struct {
	Coffee   []MenuItem `json:"coffee"`
	Tea      []MenuItem `json:"tea"`
	Beverage []MenuItem `json:"beverage"`
	Dessert  []MenuItem `json:"dessert"`
}

// MenuItem is one orderable item. Price is in won.
type MenuItem struct {
	Name        string       `json:"name"`
	Price       int64        `json:"price"`
	IsAvailable bool         `json:"isAvailable"`
	Category    string       `json:"category"`
	Options     *ItemOptions `json:"options,omitempty"`
}

// ItemOptions lists temperature variants.
type ItemOptions struct {
	Hot bool `json:"hot"`
	Ice bool `json:"ice"`
}

// Items flattens all categories in coffee, tea, beverage, dessert order.
func (m Menu) Items() []MenuItem {
	out := make([]MenuItem, 0, len(m.Coffee)+len(m.Tea)+len(m.Beverage)+len(m.Dessert))
	out = append(out, m.Coffee...)
	out = append(out, m.Tea...)
	out = append(out, m.Beverage...)
	out = append(out, m.Dessert...)
	return out
}

// Available returns a copy of m keeping only available items.
func (m Menu) Available() Menu {
	return Menu{
		Coffee:   availableOnly(m.Coffee),
		Tea:      availableOnly(m.Tea),
		Beverage: availableOnly(m.Beverage),
		Dessert:  availableOnly(m.Dessert),
	}
}

func availableOnly(items []MenuItem) []MenuItem {
	out := make([]MenuItem, 0, len(items))
	for _, it := range items {
		if it.IsAvailable {
			out = append(out, it)
		}
	}
	return out
}

// Facilities describes on-site amenities.
type Facilities struct {
	Parking Parking `json:"parking"`
	Wifi    Wifi    `json:"wifi"`
	Power   Power   `json:"power"`
	Seats   Seats   `json:"seats"`
}

// Parking availability.
type Parking struct {
	Available   bool   `json:"available"`
	Description string `json:"description"`
}

// Wifi network details. Password may be empty for open networks.
type Wifi struct {
	Available bool   `json:"available"`
	Name      string `json:"name"`
	Password  string `json:"password"`
}

// Power outlet availability.
type Power struct {
	Available   bool   `json:"available"`
	Description string `json:"description"`
}

// Seats summarises seating capacity.
type Seats struct {
	Total  int            `json:"total"`
	Tables map[string]int `json:"tables"`
}
