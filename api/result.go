package api

// ResultStatus is the terminal outcome kind of a single backend execution.
type ResultStatus string

const (
	StatusSuccess        ResultStatus = "success"
	StatusReturnCode     ResultStatus = "return_code"
	StatusSignal         ResultStatus = "signal"
	StatusTimeLimit      ResultStatus = "time_limit"
	StatusWallLimit      ResultStatus = "wall_limit"
	StatusMemoryLimit    ResultStatus = "memory_limit"
	StatusMissingFiles   ResultStatus = "missing_files"
	StatusInternalError  ResultStatus = "internal_error"
	StatusInvalidRequest ResultStatus = "invalid_request"
)

// Result is the outcome of one execution together with its resource usage.
type Result struct {
	Status ResultStatus `json:"status"`

	CpuMillis  int64 `json:"cpu_millis"`
	SysMillis  int64 `json:"sys_millis"`
	WallMillis int64 `json:"wall_millis"`
	MemoryKiB  int64 `json:"memory_kib"`

	WasCached bool   `json:"was_cached"`
	Error     string `json:"error,omitempty"`
}

// Ok reports whether the execution finished successfully.
func (r Result) Ok() bool {
	return r.Status == StatusSuccess
}
