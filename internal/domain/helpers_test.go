package domain

import "time"

var testDate = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
