package metrics

import "time"

// JobStarted marks a job of jobType as in flight.
func JobStarted(jobType string) {
	JobsInFlight.WithLabelValues(jobType).Inc()
}

// JobCompleted records a finished job and its run time.
func JobCompleted(jobType string, duration time.Duration) {
	JobsInFlight.WithLabelValues(jobType).Dec()
	JobsTotal.WithLabelValues(jobType, "completed").Inc()
	JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// JobFailed records a failed attempt, whether or not it will be retried.
func JobFailed(jobType string) {
	JobsInFlight.WithLabelValues(jobType).Dec()
	JobsTotal.WithLabelValues(jobType, "failed").Inc()
}

// JobRetried records a failed job handed back to the queue.
func JobRetried(jobType string) {
	JobRetriesTotal.WithLabelValues(jobType).Inc()
}

// FormSubmitted records the outcome of a form submission: "succeeded",
// "invalid", "rejected" or "duplicate".
func FormSubmitted(form, outcome string) {
	FormSubmissions.WithLabelValues(form, outcome).Inc()
}
