package core

var (
	monthAbbrevEN = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	monthAbbrevES = [12]string{"Ene", "Feb", "Mar", "Abr", "May", "Jun", "Jul", "Ago", "Sep", "Oct", "Nov", "Dic"}
)

// MonthLabel returns the English three-letter abbreviation, or "" outside 1..12.
func MonthLabel(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthAbbrevEN[month-1]
}

// MonthLabelES returns the Spanish abbreviation used in hover tooltips.
func MonthLabelES(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthAbbrevES[month-1]
}
