package dom

// Role is a purchase-flow purpose assigned to an element. An element may
// match zero, one, or several roles; classification is independent per
// role.
type Role string

const (
	RoleReservationButton Role = "reservation_button"
	RoleSeatSelector      Role = "seat_selector"
	RolePriceElement      Role = "price_element"
	RoleDateSelector      Role = "date_selector"
	RoleQuantitySelector  Role = "quantity_selector"
	RolePaymentButton     Role = "payment_button"
	RoleLoginElement      Role = "login_element"
)

// AllRoles lists every role in a fixed order, used when a full page scan
// classifies against everything.
var AllRoles = []Role{
	RoleReservationButton,
	RoleSeatSelector,
	RolePriceElement,
	RoleDateSelector,
	RoleQuantitySelector,
	RolePaymentButton,
	RoleLoginElement,
}

// RoleSpec declares how one role is located and scored. Selectors are
// alternative query strategies tried in declared order; results are
// unioned. Keywords feed the confidence score's keyword signal.
type RoleSpec struct {
	Role      Role
	Selectors []string
	Keywords  []string
}

// roleSpecs is ordered; declaration order is the tie-break between
// strategies that find the same element with equal confidence.
var roleSpecs = map[Role]RoleSpec{
	RoleReservationButton: {
		Role: RoleReservationButton,
		Selectors: []string{
			`a[href*="/ticket"]`,
			`a[href*="/goods/"]`,
			`a[href*="book"]`,
			`button[class*="btn"]`,
			`a[class*="btn"]`,
			`.btn`,
			`[role="button"]`,
		},
		Keywords: []string{"예매", "예약", "구매", "book", "reserve", "buy"},
	},
	RoleSeatSelector: {
		Role: RoleSeatSelector,
		Selectors: []string{
			`.seat, [class*="seat"]`,
			`.chair, [class*="chair"]`,
			`svg rect, svg circle, svg path`,
			`.grid-item, [class*="grid"]`,
			`td[class*="seat"]`,
		},
		Keywords: []string{"좌석", "seat", "chair"},
	},
	RolePriceElement: {
		Role: RolePriceElement,
		Selectors: []string{
			`[class*="price"], [class*="cost"], [class*="fee"]`,
			`[id*="price"], [id*="cost"], [id*="fee"]`,
		},
		Keywords: []string{"원", "price", "cost", "fee"},
	},
	RoleDateSelector: {
		Role: RoleDateSelector,
		Selectors: []string{
			`input[type="date"], select[name*="date"], select[id*="date"]`,
			`[class*="date"], [class*="calendar"]`,
			`td[class*="date"]`,
		},
		Keywords: []string{"날짜", "date", "calendar"},
	},
	RoleQuantitySelector: {
		Role: RoleQuantitySelector,
		Selectors: []string{
			`select[name*="qty"], select[name*="quantity"], select[name*="count"]`,
			`input[name*="qty"], input[name*="quantity"], input[name*="count"]`,
			`[class*="qty"], [class*="quantity"], [class*="count"]`,
		},
		Keywords: []string{"수량", "qty", "quantity", "count"},
	},
	RolePaymentButton: {
		Role: RolePaymentButton,
		Selectors: []string{
			`button, a, input[type="button"], input[type="submit"]`,
		},
		Keywords: []string{"결제", "payment", "pay", "checkout"},
	},
	RoleLoginElement: {
		Role: RoleLoginElement,
		Selectors: []string{
			`input[type="text"], input[type="email"], input[type="password"]`,
			`button[class*="login"], a[class*="login"]`,
			`input[type="submit"], input[type="button"]`,
		},
		Keywords: []string{"로그인", "login", "id", "password"},
	},
}

// SpecFor returns the selector strategies and keywords for a role.
func SpecFor(role Role) RoleSpec {
	return roleSpecs[role]
}
