// Package signals owns process-wide shutdown coordination.
//
// Asynchronous notifications (interrupt, alarm expiry, child exit) are handled
// on a dedicated dispatcher goroutine, and the work done there is restricted to
// atomic flag and counter updates plus one raw append to the event trail. Richer
// bookkeeping such as status rendering or structured logging is done by ordinary
// code that polls the flags.
//
// Lifecycle per process:
//
//	idle --interrupt--> shutdown-requested --interrupt--> forced exit
//
// An interrupt that arrives while a critical section is open stays pending and is
// delivered when the outermost section closes.
package signals
