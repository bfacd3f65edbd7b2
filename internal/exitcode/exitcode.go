package exitcode

const (
	Success          = 0
	UsageError       = 1
	ValidationError  = 2
	DBConnError      = 3
	InputError       = 4
	UnsupportedPayer = 5
	RateError        = 6
	PartialSuccess   = 7
)
