// voicebridge client: reference terminal client. Connects to a
// voicebridge server, sends either a typed message or a streamed
// audio file, prints transcripts and replies, and writes the reply
// audio to a file for playback.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/voicebridge/voicebridge/internal/log"
	"github.com/voicebridge/voicebridge/pkg/client"
	"github.com/voicebridge/voicebridge/pkg/protocol"
)

var (
	serverURL = flag.String("server", "ws://localhost:8080/ws/voice", "voicebridge server URL")
	text      = flag.String("text", "", "send this text instead of audio")
	audioFile = flag.String("audio", "", "audio file to stream as one recording")
	outPath   = flag.String("out", "reply.mp3", "file the reply audio is written to")
	chunkSize = flag.Int("chunk", 4096, "audio frame size in bytes")
	logLevel  = flag.String("log-level", "warn", "log level (debug|info|warn|error)")
)

func main() {
	flag.Parse()
	log.Init(*logLevel)

	if *text == "" && *audioFile == "" {
		fmt.Fprintln(os.Stderr, "usage: client -text \"...\" | -audio file.wav [-server ws://...]")
		os.Exit(1)
	}

	out, err := os.Create(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "client: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	sink := client.NewWriterSink(out)
	playback := client.NewPlayback(sink, log.L())
	sink.OnDone(playback.AppendDone)

	conn, err := client.NewConn(*serverURL,
		client.WithConnLogger(log.L()),
		client.WithReconnect(3, 2*time.Second),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "client: %v\n", err)
		os.Exit(1)
	}

	var doneOnce, stoppedOnce sync.Once
	done := make(chan struct{})
	stopped := make(chan struct{})
	finish := func() { doneOnce.Do(func() { close(done) }) }
	ack := func() { stoppedOnce.Do(func() { close(stopped) }) }
	conn.OnMessage(func(msg *protocol.Message) {
		handleMessage(msg, playback, finish, ack)
	})

	if err := conn.Connect(); err != nil {
		fmt.Fprintf(os.Stderr, "client: connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Disconnect()

	if *text != "" {
		fmt.Printf("> %s\n", *text)
		if err := conn.SendText(*text); err != nil {
			fmt.Fprintf(os.Stderr, "client: send: %v\n", err)
			os.Exit(1)
		}
	} else {
		if err := streamAudio(conn, *audioFile, stopped); err != nil {
			fmt.Fprintf(os.Stderr, "client: %v\n", err)
			os.Exit(1)
		}
	}

	select {
	case <-done:
	case <-time.After(60 * time.Second):
		fmt.Fprintln(os.Stderr, "client: timed out waiting for reply")
		os.Exit(1)
	}

	// Let the last append land before closing the file
	for playback.Pending() > 0 || playback.Appending() {
		time.Sleep(10 * time.Millisecond)
	}
	fmt.Printf("reply audio written to %s\n", *outPath)
}

func handleMessage(msg *protocol.Message, playback *client.Playback, finish, ack func()) {
	switch msg.Type {
	case protocol.TypeReady:
		log.Debug("server ready")

	case protocol.TypeRecordingStarted:
		fmt.Println("[recording]")

	case protocol.TypeRecordingStopped:
		if data, err := msg.GetRecordingStoppedData(); err == nil {
			fmt.Printf("you said: %s\n", data.FullTranscript)
		}
		ack()

	case protocol.TypeTranscript:
		if data, err := msg.GetTranscriptData(); err == nil && data.IsFinal {
			fmt.Printf("  ... %s\n", data.Data)
		}

	case protocol.TypeAIResponse:
		if data, err := msg.GetAIResponseData(); err == nil {
			fmt.Printf("< %s\n", data.Data)
		}

	case protocol.TypeAudio:
		data, err := msg.GetAudioData()
		if err != nil {
			log.Warn("bad audio message", "error", err)
			return
		}
		chunk, err := data.DecodeAudio()
		if err != nil {
			log.Warn("undecodable audio chunk", "index", data.ChunkIndex, "error", err)
			return
		}
		playback.Enqueue(chunk)

	case protocol.TypeAudioEnd:
		if data, err := msg.GetAudioEndData(); err == nil {
			log.Debug("audio complete", "chunks", data.TotalChunks)
		}
		finish()

	case protocol.TypeError:
		if data, err := msg.GetErrorData(); err == nil {
			fmt.Fprintf(os.Stderr, "server error: %s\n", data.Message)
		}
		finish()
	}
}

// streamAudio sends the file as one recording: start, binary frames
// in order, stop, then waits for the transcript acknowledgment.
func streamAudio(conn *client.Conn, path string, stopped chan struct{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := conn.StartRecording(); err != nil {
		return err
	}

	buf := make([]byte, *chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			frame := make([]byte, n)
			copy(frame, buf[:n])
			if serr := conn.SendAudio(frame); serr != nil {
				return serr
			}
			// Pace roughly like a live microphone
			time.Sleep(20 * time.Millisecond)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	if err := conn.StopRecording(); err != nil {
		return err
	}

	select {
	case <-stopped:
	case <-time.After(15 * time.Second):
		return fmt.Errorf("timed out waiting for transcript")
	}
	return nil
}
