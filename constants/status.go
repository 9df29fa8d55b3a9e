package constants

// Outcome is the terminal state of one extraction request, used in logs.
type Outcome string

// Stable values (log these exact strings).
const (
	OutcomeOK              Outcome = "OK"               // invoice JSON returned
	OutcomeInputError      Outcome = "INPUT_ERROR"      // upload rejected (400)
	OutcomeExtractionError Outcome = "EXTRACTION_ERROR" // pdf unreadable
	OutcomeServiceError    Outcome = "SERVICE_ERROR"    // model call failed
	OutcomeParseError      Outcome = "PARSE_ERROR"      // completion was not valid invoice JSON
)
