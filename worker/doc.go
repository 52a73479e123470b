// Package worker hosts registered activities and drives them from NATS
// JetStream.
//
// A worker consumes activity tasks, hands each one to the matching
// activity adapter, and publishes the outcome to the workflow's history
// subject. It implements no retry policy of its own: a failed invocation
// is reported and the engine decides what happens next.
//
// Example:
//
//	conn, err := natz.Connect(cfg, log)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	w, err := worker.New(conn, &worker.Options{Logger: slogger})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	w.Register("billing.Charge", activity.New(Charge))
//
//	if err := w.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package worker
