package runtime

import (
	"testing"
)

// BenchmarkNativeDispatch measures pure native method dispatch performance,
// the fast path when a class is backed by Go rather than BashBridge.
func BenchmarkNativeDispatch(b *testing.B) {
	os := NewObjectSpace()
	d := NewDispatcher(os)

	// Register a simple class with a fast method
	methods := NewMethodTable()
	methods.AddInstanceMethod("increment", func(self *Instance, args []Value) Value {
		current := self.GetVar("value").AsInt()
		self.SetVar("value", IntValue(current+1))
		return self.GetVar("value")
	}, 0, 0)

	os.RegisterClass("Tally", "", []string{"value"}, methods)
	counter, _ := os.NewInstance("Tally")
	counter.SetVar("value", IntValue(0))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.SendDirect(counter, "increment", nil)
	}
}

// BenchmarkNativeDispatchWithLookup measures dispatch including instance
// lookup, the common case for Dispatcher.Send with a string receiver ID.
func BenchmarkNativeDispatchWithLookup(b *testing.B) {
	os := NewObjectSpace()
	d := NewDispatcher(os)

	methods := NewMethodTable()
	methods.AddInstanceMethod("increment", func(self *Instance, args []Value) Value {
		current := self.GetVar("value").AsInt()
		self.SetVar("value", IntValue(current+1))
		return self.GetVar("value")
	}, 0, 0)

	os.RegisterClass("Tally", "", []string{"value"}, methods)
	counter, _ := os.NewInstance("Tally")
	counter.SetVar("value", IntValue(0))
	counterID := counter.ID

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Send(counterID, "increment", nil)
	}
}

// BenchmarkCrossClassMessaging measures dispatch across class boundaries,
// one instance method calling into another registered class.
func BenchmarkCrossClassMessaging(b *testing.B) {
	os := NewObjectSpace()
	d := NewDispatcher(os)

	// Tally class
	counterMethods := NewMethodTable()
	counterMethods.AddInstanceMethod("getValue", func(self *Instance, args []Value) Value {
		return self.GetVar("value")
	}, 0, 0)
	counterMethods.AddInstanceMethod("increment", func(self *Instance, args []Value) Value {
		current := self.GetVar("value").AsInt()
		self.SetVar("value", IntValue(current+1))
		return self.GetVar("value")
	}, 0, 0)
	os.RegisterClass("Tally", "", []string{"value"}, counterMethods)

	// Manager class that calls Tally
	managerMethods := NewMethodTable()
	managerMethods.AddInstanceMethod("incrementTally:", func(self *Instance, args []Value) Value {
		counterInst := args[0].InstanceVal
		return d.SendDirect(counterInst, "increment", nil)
	}, 1, 0)
	os.RegisterClass("TallyKeeper", "", nil, managerMethods)

	counter, _ := os.NewInstance("Tally")
	counter.SetVar("value", IntValue(0))
	manager, _ := os.NewInstance("TallyKeeper")
	counterVal := InstanceValue(counter)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.SendDirect(manager, "incrementTally:", []Value{counterVal})
	}
}

// BenchmarkEventDispatchChain measures a realistic event dispatch chain.
// SignalRouter -> Pane, carrying a pre-built Signal (3 classes)
func BenchmarkEventDispatchChain(b *testing.B) {
	os := NewObjectSpace()
	d := NewDispatcher(os)

	// Pane
	widgetMethods := NewMethodTable()
	widgetMethods.AddInstanceMethod("handleEvent:", func(self *Instance, args []Value) Value {
		self.SetVar("lastEvent", args[0].InstanceVal.GetVar("eventType"))
		return StringValue("handled")
	}, 1, 0)
	os.RegisterClass("Pane", "", []string{"lastEvent"}, widgetMethods)

	// Signal
	eventMethods := NewMethodTable()
	eventMethods.AddInstanceMethod("type", func(self *Instance, args []Value) Value {
		return self.GetVar("eventType")
	}, 0, 0)
	os.RegisterClass("Signal", "", []string{"eventType"}, eventMethods)

	// SignalRouter
	dispatcherMethods := NewMethodTable()
	dispatcherMethods.AddInstanceMethod("dispatch:to:", func(self *Instance, args []Value) Value {
		return d.SendDirect(args[1].InstanceVal, "handleEvent:", []Value{args[0]})
	}, 2, 0)
	os.RegisterClass("SignalRouter", "", nil, dispatcherMethods)

	// Pre-create reusable instances
	widget, _ := os.NewInstance("Pane")
	dispatcher, _ := os.NewInstance("SignalRouter")
	event, _ := os.NewInstance("Signal")
	event.SetVar("eventType", StringValue("keypress"))

	eventVal := InstanceValue(event)
	widgetVal := InstanceValue(widget)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.SendDirect(dispatcher, "dispatch:to:", []Value{eventVal, widgetVal})
	}
}

// BenchmarkClassMethodDispatch measures class method calls.
func BenchmarkClassMethodDispatch(b *testing.B) {
	os := NewObjectSpace()
	d := NewDispatcher(os)

	methods := NewMethodTable()
	methods.AddClassMethod("version", func(self *Instance, args []Value) Value {
		return StringValue("1.0")
	}, 0, 0)
	os.RegisterClass("Echo", "", nil, methods)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Send("Echo", "version", nil)
	}
}

// BenchmarkInstanceCreation measures instance creation through Dispatcher.Send("Class", "new", ...).
func BenchmarkInstanceCreation(b *testing.B) {
	os := NewObjectSpace()
	d := NewDispatcher(os)

	methods := NewMethodTable()
	os.RegisterClass("Tally", "", []string{"value", "step"}, methods)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Send("Tally", "new", nil)
	}
}
