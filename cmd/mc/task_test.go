package main

import (
	"flag"
	"io"
	"testing"
)

func TestSplitIDArgs(t *testing.T) {
	id, rest, ok := splitIDArgs([]string{"TASK-1", "-status", "done"}, "usage")
	if !ok {
		t.Fatal("expected ok for id-first args")
	}
	if id != "TASK-1" {
		t.Fatalf("id = %q", id)
	}
	if len(rest) != 2 || rest[0] != "-status" {
		t.Fatalf("rest = %v", rest)
	}

	if _, _, ok := splitIDArgs(nil, "usage"); ok {
		t.Fatal("expected failure for empty args")
	}
	if _, _, ok := splitIDArgs([]string{"-status", "done"}, "usage"); ok {
		t.Fatal("expected failure when flags come before the id")
	}
}

func TestUpdateInvocationParsesDocumentedOrder(t *testing.T) {
	// mc task update TASK-1 -status done -priority high
	args := []string{"TASK-1", "-status", "done", "-priority", "high"}

	id, flagArgs, ok := splitIDArgs(args, "usage")
	if !ok {
		t.Fatal("expected id to split off")
	}

	fs := flag.NewFlagSet("mc task update", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	status := fs.String("status", "", "")
	priority := fs.String("priority", "", "")
	if err := fs.Parse(flagArgs); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if fs.NArg() != 0 {
		t.Fatalf("unexpected trailing args: %v", fs.Args())
	}
	if id != "TASK-1" || *status != "done" || *priority != "high" {
		t.Fatalf("parsed id=%q status=%q priority=%q", id, *status, *priority)
	}
}
