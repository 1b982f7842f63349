package osc

const zero = string(byte(0))

// nulls returns a string of `i` nulls.
func nulls(i int) string {
	s := ""
	for j := 0; j < i; j++ {
		s += zero
	}
	return s
}

type testCase struct {
	name    string
	obj     Packet
	raw     []byte
	wantErr bool
}

// raw joins the given parts into a single byte slice.
func raw(parts ...string) []byte {
	b := []byte{}
	for _, p := range parts {
		b = append(b, p...)
	}
	return b
}

var messageTestCases = []testCase{
	{"no_arguments", &Message{Address: "/a"}, raw("/a", nulls(2), ",", nulls(3)), false},
	{"int32_float32", NewMessage("/foo", int32(1), float32(0.5)),
		raw("/foo", nulls(4), ",if", nulls(1), "\x00\x00\x00\x01", "\x3f\x00\x00\x00"), false},
	{"string", NewMessage("/s", "hi"), raw("/s", nulls(2), ",s", nulls(2), "hi", nulls(2)), false},
	{"bool_nil", NewMessage("/b", true, false, nil), raw("/b", nulls(2), ",TFN", nulls(4)), false},
	{"blob", NewMessage("/blob", []byte{1, 2, 3}),
		raw("/blob", nulls(3), ",b", nulls(2), "\x00\x00\x00\x03", "\x01\x02\x03", nulls(1)), false},
	{"int64_float64", NewMessage("/h", int64(-1), float64(1)),
		raw("/h", nulls(2), ",hd", nulls(1), "\xff\xff\xff\xff\xff\xff\xff\xff", "\x3f\xf0", nulls(6)), false},
	{"midi", NewMessage("/midi", MIDI{0, 0x90, 60, 100}),
		raw("/midi", nulls(3), ",m", nulls(2), "\x00\x90\x3c\x64"), false},
	{"note_on", NewMessage("/osclap/note_on", int32(1), int32(60), float32(0.5)),
		raw("/osclap/note_on", nulls(1), ",iif", nulls(4), "\x00\x00\x00\x01", "\x00\x00\x00\x3c", "\x3f\x00\x00\x00"), false},
}

var bundleTestCases = []testCase{
	{"bundle_empty", &Bundle{Timetag: 1}, raw("#bundle", nulls(1), nulls(7), "\x01"), false},
	{"bundle_message", &Bundle{Timetag: 1, Elements: []Packet{&Message{Address: "/a"}}},
		raw("#bundle", nulls(1), nulls(7), "\x01", "\x00\x00\x00\x08", "/a", nulls(2), ",", nulls(3)), false},
	{"bundle_nested", &Bundle{Timetag: 1, Elements: []Packet{
		NewMessage("/s", "hi"),
		&Bundle{Timetag: 1, Elements: []Packet{&Message{Address: "/a"}}},
	}},
		raw("#bundle", nulls(1), nulls(7), "\x01",
			"\x00\x00\x00\x0c", "/s", nulls(2), ",s", nulls(2), "hi", nulls(2),
			"\x00\x00\x00\x1c", "#bundle", nulls(1), nulls(7), "\x01", "\x00\x00\x00\x08", "/a", nulls(2), ",", nulls(3)), false},
}
