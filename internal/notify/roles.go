package notify

// Role selects which aspect of a cell a view asks for.
type Role int

const (
	// RoleDisplay is the rendered value of a cell.
	RoleDisplay Role = iota

	// RoleEdit is the editable value of a cell; only stage names are editable.
	RoleEdit

	// RoleForeground is the text color hint of a cell.
	RoleForeground

	// RoleID is the numeric identifier behind a row (stage id or solution id).
	RoleID
)

// Color is a foreground hint. Views map it to their own palette.
type Color int

const (
	ColorDefault Color = iota
	ColorRed
)
