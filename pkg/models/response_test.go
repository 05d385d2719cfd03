package models

import (
	"errors"
	"testing"
)

func TestStructuredResponse_Validate(t *testing.T) {
	tests := []struct {
		name    string
		resp    StructuredResponse
		wantErr bool
	}{
		{
			name: "well-formed action",
			resp: NewActionResponse("thinking", ActionBlock{
				Runtime: RuntimePython,
				Source:  `print("hello")`,
			}),
			wantErr: false,
		},
		{
			name:    "well-formed final answer",
			resp:    NewFinalResponse("", "the answer is 42"),
			wantErr: false,
		},
		{
			name:    "zero value is malformed",
			resp:    StructuredResponse{},
			wantErr: true,
		},
		{
			name: "action kind without block",
			resp: StructuredResponse{
				Kind: KindAction,
			},
			wantErr: true,
		},
		{
			name: "both action and final answer",
			resp: StructuredResponse{
				Kind:        KindAction,
				Action:      &ActionBlock{Runtime: RuntimeBash, Source: "ls"},
				FinalAnswer: "done",
			},
			wantErr: true,
		},
		{
			name: "final kind with action block",
			resp: StructuredResponse{
				Kind:        KindFinal,
				FinalAnswer: "done",
				Action:      &ActionBlock{Runtime: RuntimeBash, Source: "ls"},
			},
			wantErr: true,
		},
		{
			name: "final kind with empty answer",
			resp: StructuredResponse{
				Kind: KindFinal,
			},
			wantErr: true,
		},
		{
			name: "action with unknown runtime",
			resp: StructuredResponse{
				Kind:   KindAction,
				Action: &ActionBlock{Runtime: Runtime("cobol"), Source: "x"},
			},
			wantErr: true,
		},
		{
			name: "action with empty source",
			resp: StructuredResponse{
				Kind:   KindAction,
				Action: &ActionBlock{Runtime: RuntimePython},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.resp.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("Validate() error = %v, want wrapped ErrMalformedResponse", err)
			}
		})
	}
}

func TestParseRuntime(t *testing.T) {
	tests := []struct {
		tag     string
		want    Runtime
		wantErr bool
	}{
		{tag: "python", want: RuntimePython},
		{tag: "py", want: RuntimePython},
		{tag: "Python", want: RuntimePython},
		{tag: "r", want: RuntimeR},
		{tag: "R", want: RuntimeR},
		{tag: "bash", want: RuntimeBash},
		{tag: "sh", want: RuntimeBash},
		{tag: "shell", want: RuntimeBash},
		{tag: "javascript", wantErr: true},
		{tag: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, err := ParseRuntime(tt.tag)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRuntime(%q) error = %v, wantErr %v", tt.tag, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseRuntime(%q) = %q, want %q", tt.tag, got, tt.want)
			}
		})
	}
}

func TestTranscript_Append(t *testing.T) {
	tr := &Transcript{}
	tr.Append(RoleUser, "do the thing")
	tr.Append(RoleAssistant, "<execute lang=\"bash\">ls</execute>")
	tr.Append(RoleObservation, "file.txt")

	if len(tr.Turns) != 3 {
		t.Fatalf("len(Turns) = %d, want 3", len(tr.Turns))
	}
	for i, turn := range tr.Turns {
		if turn.Seq != i {
			t.Errorf("turn %d has Seq %d", i, turn.Seq)
		}
	}
	obs := tr.Observations()
	if len(obs) != 1 || obs[0].Content != "file.txt" {
		t.Errorf("Observations() = %+v, want single file.txt turn", obs)
	}
}
