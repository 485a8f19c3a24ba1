// Package workflow runs the conversion queue one file at a time.
//
// A Processor claims the pending item with the lowest id, moves it to
// converting, calls the Converter and records done or error before looking at
// the next item. Only one conversion is ever in flight. RequestPause is
// cooperative: the file being converted always finishes and the loop stops at
// the next boundary. A failed file is recorded and the run moves on; nothing
// is retried.
//
// The processor reports every status change and the refreshed
// pending/converting counts to its Presenter.
package workflow
