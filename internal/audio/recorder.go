package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
)

const (
	pcmChannels = 1
	pcmBitDepth = 16
)

// Recorder archives the PCM frames of a capture session to disk. The archive
// is finalized as mp3 when ffmpeg is available and wav otherwise.
type Recorder struct {
	audioDir   string
	sampleRate int

	mu        sync.Mutex
	sessionID string
	rawPath   string
	rawFile   *os.File
	writeErr  error

	encode func(rawPath, sessionID string) (string, error)
}

func NewRecorder(audioDir string, sampleRate int) *Recorder {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	r := &Recorder{audioDir: audioDir, sampleRate: sampleRate}
	r.encode = r.defaultEncode
	return r
}

// StartSession opens a fresh raw file for sessionID, discarding any unfinished one.
func (r *Recorder) StartSession(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.audioDir, 0o755); err != nil {
		return fmt.Errorf("create audio directory: %w", err)
	}

	if r.rawFile != nil {
		_ = r.rawFile.Close()
		_ = os.Remove(r.rawPath)
	}

	rawPath := filepath.Join(r.audioDir, sessionID+".pcm")
	rawFile, err := os.OpenFile(rawPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open raw pcm file: %w", err)
	}

	r.sessionID = sessionID
	r.rawPath = rawPath
	r.rawFile = rawFile
	r.writeErr = nil
	return nil
}

// Tee returns a sink that archives each frame before forwarding it.
func (r *Recorder) Tee(next func(Frame)) func(Frame) {
	return func(f Frame) {
		r.write(f.Data)
		if next != nil {
			next(f)
		}
	}
}

func (r *Recorder) write(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rawFile == nil || r.writeErr != nil {
		return
	}
	if _, err := r.rawFile.Write(data); err != nil {
		r.writeErr = fmt.Errorf("write raw pcm bytes: %w", err)
	}
}

// EndSession finalizes the archive and returns its path. It returns an empty
// path when no session is open.
func (r *Recorder) EndSession() (string, error) {
	r.mu.Lock()
	if r.rawFile == nil {
		r.mu.Unlock()
		return "", nil
	}
	sessionID, rawPath, rawFile, writeErr := r.sessionID, r.rawPath, r.rawFile, r.writeErr
	r.sessionID, r.rawPath, r.rawFile, r.writeErr = "", "", nil, nil
	r.mu.Unlock()

	if err := rawFile.Close(); err != nil {
		return "", fmt.Errorf("close raw pcm file: %w", err)
	}
	if writeErr != nil {
		_ = os.Remove(rawPath)
		return "", writeErr
	}

	audioPath, err := r.encode(rawPath, sessionID)
	if err != nil {
		return "", err
	}
	_ = os.Remove(rawPath)
	return audioPath, nil
}

// Abort drops the open session without producing an archive.
func (r *Recorder) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rawFile == nil {
		return
	}
	_ = r.rawFile.Close()
	_ = os.Remove(r.rawPath)
	r.sessionID, r.rawPath, r.rawFile, r.writeErr = "", "", nil, nil
}

func (r *Recorder) defaultEncode(rawPath, sessionID string) (string, error) {
	mp3Path := filepath.Join(r.audioDir, sessionID+".mp3")
	if err := encodeWithFFmpeg(rawPath, mp3Path, r.sampleRate); err == nil {
		return mp3Path, nil
	}

	wavPath := filepath.Join(r.audioDir, sessionID+".wav")
	if err := pcmToWav(rawPath, wavPath, r.sampleRate); err != nil {
		return "", fmt.Errorf("encode wav fallback: %w", err)
	}
	return wavPath, nil
}

func encodeWithFFmpeg(rawPath, outputPath string, sampleRate int) error {
	cmd := exec.Command(
		"ffmpeg",
		"-y",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(pcmChannels),
		"-i", rawPath,
		outputPath,
	)
	return cmd.Run()
}

func pcmToWav(rawPath, wavPath string, sampleRate int) error {
	pcmData, err := os.ReadFile(rawPath)
	if err != nil {
		return fmt.Errorf("read raw pcm data: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(44 + len(pcmData))
	if err := binary.Write(&buf, binary.LittleEndian, newWavHeader(len(pcmData), sampleRate)); err != nil {
		return fmt.Errorf("build wav header: %w", err)
	}
	buf.Write(pcmData)

	if err := os.WriteFile(wavPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write wav output: %w", err)
	}
	return nil
}

type wavHeader struct {
	RIFF          [4]byte
	ChunkSize     uint32
	WAVE          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

func newWavHeader(dataSize, sampleRate int) wavHeader {
	blockAlign := pcmChannels * pcmBitDepth / 8
	return wavHeader{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + dataSize),
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1,
		Channels:      pcmChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * blockAlign),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: pcmBitDepth,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      uint32(dataSize),
	}
}
