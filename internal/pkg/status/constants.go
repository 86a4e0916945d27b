package status

// Status represents submission state
type Status int

const (
	// Idle - nothing is submitted
	Idle Status = iota + 1
	// Uploading - audio is being sent
	Uploading
	// Transcribing - waiting for the oracle
	Transcribing
	// Completed - final step, record is persisted
	Completed
	// Failed - final step, may be retried
	Failed
)

var (
	statusName = map[Status]string{Idle: "idle", Uploading: "uploading", Transcribing: "transcribing",
		Completed: "complete", Failed: "failed"}
	nameStatus = map[string]Status{"idle": Idle, "uploading": Uploading, "transcribing": Transcribing,
		"complete": Completed, "failed": Failed}
)

func (st Status) String() string {
	return statusName[st]
}

// From returns status obj from string
func From(st string) Status {
	return nameStatus[st]
}

// InFlight returns true if the submission waits for the remote side
func (st Status) InFlight() bool {
	return st == Uploading || st == Transcribing
}
