package logflags

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestMakeLoggerUsingLoggerFactory(t *testing.T) {
	if loggerFactory != nil {
		t.Fatalf("expected loggerFactory to be nil; but was <%v>", loggerFactory)
	}
	defer func() {
		loggerFactory = nil
	}()

	expectedLogger := &logrusLogger{}
	SetLoggerFactory(func(flag bool, fields Fields, out io.Writer) Logger {
		if !flag {
			t.Fatalf("expected flag to be true")
		}
		if len(fields) != 1 || fields["foo"] != "bar" {
			t.Fatalf("expected fields to be {'foo':'bar'}; but was <%v>", fields)
		}
		return expectedLogger
	})

	actual := makeLogger(true, Fields{"foo": "bar"})
	if actual != expectedLogger {
		t.Fatalf("expected actual to be <%v>; but was <%v>", expectedLogger, actual)
	}
}

func TestMakeLoggerWithFlagFalse(t *testing.T) {
	if loggerFactory != nil {
		t.Fatalf("expected loggerFactory to be nil; but was <%v>", loggerFactory)
	}

	actual := makeLogger(false, Fields{"foo": "bar"})
	actualEntry, ok := actual.(*logrusLogger)
	if !ok {
		t.Fatalf("expected actual to be a *logrusLogger; but was <%T>", actual)
	}
	if actualEntry.Entry.Logger.Level != logrus.PanicLevel {
		t.Fatalf("expected level to be <%v>; but was <%v>", logrus.PanicLevel, actualEntry.Logger.Level)
	}
	if len(actualEntry.Entry.Data) != 1 || actualEntry.Data["foo"] != "bar" {
		t.Fatalf("expected fields to be {'foo':'bar'}; but was <%v>", actualEntry.Data)
	}
}

func TestMakeLoggerWithFlagTrue(t *testing.T) {
	if loggerFactory != nil {
		t.Fatalf("expected loggerFactory to be nil; but was <%v>", loggerFactory)
	}

	actual := makeLogger(true, Fields{"foo": "bar"})
	actualEntry, ok := actual.(*logrusLogger)
	if !ok {
		t.Fatalf("expected actual to be a *logrusLogger; but was <%T>", actual)
	}
	if actualEntry.Entry.Logger.Level != logrus.DebugLevel {
		t.Fatalf("expected level to be <%v>; but was <%v>", logrus.DebugLevel, actualEntry.Logger.Level)
	}
}

func TestSetup(t *testing.T) {
	defer func() {
		catalog = false
		dolphin = false
		image = false
		workspace = false
	}()

	if err := Setup(false, "dolphin"); err != errLogstrWithoutLog {
		t.Errorf("expected errLogstrWithoutLog; got %v", err)
	}

	if err := Setup(true, "dolphin,image"); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if !Dolphin() || !Image() {
		t.Errorf("expected dolphin and image layers to be enabled")
	}
	if Catalog() || Workspace() {
		t.Errorf("expected catalog and workspace layers to stay disabled")
	}
}
