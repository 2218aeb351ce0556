package timeframe

import (
	"fmt"
	"time"
)

// TimeWindowBuffer is added to the end of every range so events recorded
// with slightly skewed clocks or delayed processing are still included.
const TimeWindowBuffer = 5 * time.Minute

type TimeFrameParser struct {
	timeProvider TimeProvider
}

func NewTimeFrameParser(timeProvider ...TimeProvider) *TimeFrameParser {
	var provider TimeProvider = &DefaultTimeProvider{}
	if len(timeProvider) > 0 && timeProvider[0] != nil {
		provider = timeProvider[0]
	}

	return &TimeFrameParser{
		timeProvider: provider,
	}
}

// ParseRange resolves a range label into a UTC time frame ending now.
// "24h" is a rolling window; "7d" and "30d" start at midnight UTC of the
// first day so today counts as one of the days; "all" starts at AllTimeStart.
func (p *TimeFrameParser) ParseRange(label string) (*TimeFrame, error) {
	now := p.timeProvider.Now(time.UTC)
	to := now.Add(TimeWindowBuffer)

	var from time.Time
	switch TimeFrameRangeLabel(label) {
	case TimeFrameRangeLabelLast24Hours:
		from = now.Add(-24 * time.Hour)
	case TimeFrameRangeLabelLast7Days:
		from = StartOfDay(now).AddDate(0, 0, -6)
	case TimeFrameRangeLabelLast30Days:
		from = StartOfDay(now).AddDate(0, 0, -29)
	case TimeFrameRangeLabelAllTime:
		from = AllTimeStart
	default:
		return nil, fmt.Errorf("invalid range: %q", label)
	}

	return NewTimeFrame(TimeFrameParams{
		FromTime: from,
		ToTime:   to,
		Label:    TimeFrameRangeLabel(label),
	})
}
