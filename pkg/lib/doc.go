// Package lib provides a Go SDK for producing and inspecting heatwork tasks
// programmatically.
//
// The task tree on the filesystem is the only contract between producers and
// the runner daemon: this package lets applications submit diffusion tasks,
// watch their lifecycle and collect results without shelling out to the
// heatwork CLI binary.
//
// # Quick Start
//
// Create a client over a task directory, submit a task and wait for its
// result:
//
//	client, err := lib.New(ctx, lib.Config{TaskDir: "/var/lib/heatwork/tasks"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	task, err := client.SubmitTask(ctx, lib.SubmitTaskOpts{
//	    Client: "10.0.0.1",
//	    Alpha:  0.5,
//	    Seeds:  []string{"TP53", "MDM2"},
//	    NDEx:   "f93f402c-86d4-11e7-a10d-0ac135e8bacf",
//	})
//
//	// Poll until a runner picks it up and finishes it.
//	for {
//	    task, err = client.GetTask(ctx, task.ID)
//	    if err != nil || task.State == lib.TaskStateDone {
//	        break
//	    }
//	    time.Sleep(time.Second)
//	}
//
//	result, err := client.Result(ctx, task.ID)
//
// # Network Sources
//
// A submission names exactly one network source: an inline SIF file
// (NetworkFile), an NDEx network UUID (NDEx) or a BigGIM interaction table
// column (Column).
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: the task or its result does not exist.
//   - [ErrNotValid]: invalid input (bad alpha, missing seeds, conflicting
//     network sources).
//
// # Concurrency
//
// A [Client] is safe for concurrent use. Note that the runner daemon itself
// is single-worker: submissions from many producers are fine, but only one
// runner should poll a given task tree.
package lib
