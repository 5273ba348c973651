// Package clean executes cleaning batches: back up, verify the protected
// policy one last time, delete, and escalate when the OS refuses. Issues
// are processed strictly sequentially; every one ends in a recorded
// outcome and per-issue failures never abort the batch.
package clean
