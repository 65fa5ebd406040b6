package source

import (
	"fmt"
	"strings"
)

// Order selects how a listing is sorted upstream.
type Order string

const (
	OrderNew           Order = "new"
	OrderHot           Order = "hot"
	OrderRising        Order = "rising"
	OrderTop           Order = "top"
	OrderControversial Order = "controversial"
)

// Window restricts top and controversial listings to a time period.
type Window string

const (
	WindowHour  Window = "hour"
	WindowDay   Window = "day"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
	WindowYear  Window = "year"
	WindowAll   Window = "all"
)

// Sort is the selector passed through to every Fetch call.
type Sort struct {
	Order  Order
	Window Window // only used by OrderTop and OrderControversial
}

// SortNew is the default selector.
var SortNew = Sort{Order: OrderNew}

// Windowed reports whether the order takes a time window.
func (s Sort) Windowed() bool {
	return s.Order == OrderTop || s.Order == OrderControversial
}

func (s Sort) String() string {
	if s.Windowed() && s.Window != "" {
		return string(s.Order) + "/" + string(s.Window)
	}
	return string(s.Order)
}

// ParseSort builds a Sort from config values. An empty order means new; an
// empty window on a windowed order means day.
func ParseSort(order, window string) (Sort, error) {
	s := Sort{Order: Order(strings.ToLower(strings.TrimSpace(order)))}
	if s.Order == "" {
		s.Order = OrderNew
	}

	switch s.Order {
	case OrderNew, OrderHot, OrderRising, OrderTop, OrderControversial:
	default:
		return Sort{}, fmt.Errorf("unknown sort %q (want new, hot, rising, top or controversial)", order)
	}

	w := Window(strings.ToLower(strings.TrimSpace(window)))
	if !s.Windowed() {
		return s, nil
	}
	if w == "" {
		w = WindowDay
	}
	switch w {
	case WindowHour, WindowDay, WindowWeek, WindowMonth, WindowYear, WindowAll:
	default:
		return Sort{}, fmt.Errorf("unknown window %q (want hour, day, week, month, year or all)", window)
	}
	s.Window = w
	return s, nil
}
