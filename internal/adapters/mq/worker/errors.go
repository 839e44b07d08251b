package worker

import "errors"

// ErrRunInProgress is returned by Run while another run of the same worker is going.
var ErrRunInProgress = errors.New("worker: batch run already in progress")
