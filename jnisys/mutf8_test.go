package jnisys

import (
	"bytes"
	"testing"
)

func TestEncodeModified(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []byte
	}{
		{"empty", "", []byte{}},
		{"ascii", "List", []byte("List")},
		{"nul", "a\x00b", []byte{'a', 0xC0, 0x80, 'b'}},
		{"two byte", "é", []byte{0xC3, 0xA9}},
		{"three byte", "☕", []byte{0xE2, 0x98, 0x95}},
		{"supplementary", "😀", []byte{0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeModified(tt.in)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeModified(%q) = % x, want % x", tt.in, got, tt.want)
			}
			if bytes.IndexByte(got, 0) >= 0 {
				t.Error("encoding contains a zero byte")
			}
			back, err := DecodeModified(got)
			if err != nil {
				t.Fatalf("DecodeModified: %v", err)
			}
			if back != tt.in {
				t.Errorf("DecodeModified = %q, want %q", back, tt.in)
			}
		})
	}
}

func TestDecodeModified_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"zero byte", []byte{'a', 0}},
		{"truncated two byte", []byte{0xC3}},
		{"truncated three byte", []byte{0xE2, 0x98}},
		{"bad continuation", []byte{0xE2, 0x28, 0xA1}},
		{"four byte form", []byte{0xF0, 0x9F, 0x98, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if s, err := DecodeModified(tt.in); err == nil {
				t.Errorf("DecodeModified(% x) = %q, want error", tt.in, s)
			}
		})
	}
}

func TestDecodeModified_UnpairedSurrogate(t *testing.T) {
	got, err := DecodeModified([]byte{'x', 0xED, 0xA0, 0xBD})
	if err != nil {
		t.Fatal(err)
	}
	if got != "x\uFFFD" {
		t.Errorf("got %q, want replacement character", got)
	}
}

func TestOptions_Args(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"defaults", Options{}, []string{"-Xcheck:jni"}},
		{
			name: "classpath and extras",
			opts: Options{Classpath: "/opt/app.jar", Options: []string{"-Xmx64m"}},
			want: []string{"-Xcheck:jni", "-Djava.class.path=/opt/app.jar", "-Xmx64m"},
		},
		{"no check", Options{NoCheck: true}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.opts.Args()
			if len(got) != len(tt.want) {
				t.Fatalf("Args = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Args[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("CLASSPATH", "/tmp/classes")
	t.Setenv("JVMBRIDGE_OPTS", " -Xss2m  -Dfoo=bar ")

	o := OptionsFromEnv()
	if o.Classpath != "/tmp/classes" {
		t.Errorf("Classpath = %q", o.Classpath)
	}
	if len(o.Options) != 2 || o.Options[0] != "-Xss2m" || o.Options[1] != "-Dfoo=bar" {
		t.Errorf("Options = %q", o.Options)
	}
	if o.version() == 0 {
		t.Error("version defaulted to zero")
	}
}
