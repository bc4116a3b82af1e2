package forecast

import "time"

// SetNow freezes the clock used to date forecasts.
func SetNow(t time.Time) (restore func()) {
	prev := nowFunc
	nowFunc = func() time.Time { return t }
	return func() { nowFunc = prev }
}
