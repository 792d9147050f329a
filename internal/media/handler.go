// Package media carries interview audio between the browser and the session
// controller: WebSocket signaling, a WebRTC peer per session, Opus decode of
// the microphone track, and paced Opus delivery of synthesized speech.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hraban/opus"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v3"

	"github.com/srlee0408/AIInterview/internal/interview"
	"github.com/srlee0408/AIInterview/internal/playback"
	"github.com/srlee0408/AIInterview/internal/storage"
)

// Notifier is told when an interview's transcript has been delivered.
type Notifier interface {
	InterviewComplete(phone string) error
}

// Deps are the capability implementations a session is wired with.
type Deps struct {
	Transcriber interview.Transcriber
	Assistant   interview.Assistant
	Synthesizer interview.Synthesizer
	Submitter   interview.Submitter
	Store       storage.Storage // optional answer archival
	Notifier    Notifier        // optional completion SMS

	ICEServersJSON string
	AuthPassword   string
}

// Handler upgrades interview connections and runs one session per socket.
type Handler struct {
	deps Deps
}

func NewHandler(deps Deps) *Handler { return &Handler{deps: deps} }

// signalMessage is the signaling frame format shared with the browser.
// Types: offer, answer, candidate, ice-complete, toggle, retry-submit,
// state, error, bye.
type signalMessage struct {
	Type          string              `json:"type"`
	SDP           string              `json:"sdp,omitempty"`
	Candidate     string              `json:"candidate,omitempty"`
	SDPMid        *string             `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16             `json:"sdpMLineIndex,omitempty"`
	State         *interview.Snapshot `json:"state,omitempty"`
	Error         string              `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  65536,
	WriteBufferSize: 65536,
	CheckOrigin: func(r *http.Request) bool {
		// The candidate app is served from a separate origin.
		return true
	},
}

// wsWriter serializes concurrent writes to one socket.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) send(m signalMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(m)
}

func (w *wsWriter) sendError(err error) {
	_ = w.send(signalMessage{Type: "error", Error: err.Error()})
}

// authOK accepts a query password, X-Auth-Token, or bearer token.
func authOK(r *http.Request, expected string) bool {
	if expected == "" {
		return true
	}
	if r == nil {
		return false
	}
	if q := r.URL.Query().Get("password"); q == expected {
		return true
	}
	if x := r.Header.Get("X-Auth-Token"); x == expected {
		return true
	}
	ah := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(ah), "bearer ") {
		return strings.TrimSpace(ah[len("Bearer "):]) == expected
	}
	return false
}

// ServeWebSocket performs offer/answer plus trickle ICE signaling, then runs
// the interview session until the socket or peer connection closes.
func (h *Handler) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	if !authOK(r, h.deps.AuthPassword) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		http.Error(w, "phone required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("media: ws upgrade error: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()
	out := &wsWriter{conn: conn}

	// The first meaningful frame must be the offer.
	var offerSDP string
	for offerSDP == "" {
		var m signalMessage
		if err := conn.ReadJSON(&m); err != nil {
			log.Printf("media: ws read before offer: %v", err)
			return
		}
		switch strings.ToLower(m.Type) {
		case "offer":
			if m.SDP == "" {
				out.sendError(fmt.Errorf("empty offer"))
				return
			}
			offerSDP = m.SDP
		case "bye":
			return
		}
	}

	sessionID := uuid.NewString()
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	pc, outTrack, err := h.newPeer()
	if err != nil {
		out.sendError(err)
		return
	}
	defer func() { _ = pc.Close() }()

	paced, err := NewOpusPacedWriter(outTrack)
	if err != nil {
		out.sendError(err)
		return
	}
	defer paced.Close()

	recorder := NewTrackRecorder(h.deps.Store, "recordings/"+sessionID)
	player := playback.NewController(paced)

	var notifyOnce sync.Once
	ctrl, err := interview.NewController(interview.Config{
		Transcriber: h.deps.Transcriber,
		Assistant:   h.deps.Assistant,
		Synthesizer: h.deps.Synthesizer,
		Submitter:   h.deps.Submitter,
		Recorder:    recorder,
		Player:      player,
		Identifier:  phone,
		OnChange: func(snap interview.Snapshot) {
			s := snap
			if err := out.send(signalMessage{Type: "state", State: &s}); err != nil {
				log.Printf("[%s] state push failed: %v", sessionID, err)
			}
			if snap.Phase == interview.PhaseEnded.String() && snap.Error == "" && h.deps.Notifier != nil {
				notifyOnce.Do(func() {
					if err := h.deps.Notifier.InterviewComplete(phone); err != nil {
						log.Printf("[%s] completion notice failed: %v", sessionID, err)
					}
				})
			}
		},
	})
	if err != nil {
		out.sendError(err)
		return
	}
	defer ctrl.Close()

	h.attachPeerHandlers(ctx, sessionID, pc, out, recorder, cancel)

	// The greeting is fetched only once media is flowing, so its audio is
	// not lost while ICE is still connecting.
	var initOnce sync.Once
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Printf("[%s] peer state: %s", sessionID, state)
		switch state {
		case webrtc.PeerConnectionStateConnected:
			initOnce.Do(func() {
				go func() {
					if err := ctrl.Initialize(ctx); err != nil {
						log.Printf("[%s] initialize: %v", sessionID, err)
					}
				}()
			})
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateDisconnected:
			cancel()
		}
	})

	if err := h.answer(pc, offerSDP, out); err != nil {
		out.sendError(err)
		return
	}

	// Main read loop: trickle candidates and user intents.
	for {
		var m signalMessage
		if err := conn.ReadJSON(&m); err != nil {
			return
		}
		switch strings.ToLower(m.Type) {
		case "candidate":
			if m.Candidate == "" {
				continue
			}
			_ = pc.AddICECandidate(webrtc.ICECandidateInit{
				Candidate: m.Candidate, SDPMid: m.SDPMid, SDPMLineIndex: m.SDPMLineIndex,
			})
		case "toggle":
			go func() {
				if err := ctrl.Toggle(ctx); err != nil {
					log.Printf("[%s] toggle: %v", sessionID, err)
				}
			}()
		case "retry-submit":
			go func() {
				if err := ctrl.RetrySubmission(ctx); err != nil {
					log.Printf("[%s] retry submission: %v", sessionID, err)
				}
			}()
		case "bye":
			return
		}
	}
}

// newPeer builds a PeerConnection with default codecs and the outbound
// interviewer audio track.
func (h *Handler) newPeer() (*webrtc.PeerConnection, *webrtc.TrackLocalStaticSample, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, nil, err
	}
	ir := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, ir); err != nil {
		return nil, nil, err
	}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine), webrtc.WithInterceptorRegistry(ir))

	pc, err := api.NewPeerConnection(webrtc.Configuration{ICEServers: parseICEServers(h.deps.ICEServersJSON)})
	if err != nil {
		return nil, nil, err
	}
	outTrack, err := newOutboundTrack()
	if err != nil {
		_ = pc.Close()
		return nil, nil, err
	}
	if _, err := pc.AddTrack(outTrack); err != nil {
		_ = pc.Close()
		return nil, nil, err
	}
	return pc, outTrack, nil
}

// attachPeerHandlers wires candidate trickling and the microphone decode loop.
func (h *Handler) attachPeerHandlers(ctx context.Context, sessionID string, pc *webrtc.PeerConnection, out *wsWriter, recorder *TrackRecorder, cancel context.CancelFunc) {
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			_ = out.send(signalMessage{Type: "ice-complete"})
			return
		}
		init := c.ToJSON()
		_ = out.send(signalMessage{
			Type: "candidate", Candidate: init.Candidate,
			SDPMid: init.SDPMid, SDPMLineIndex: init.SDPMLineIndex,
		})
	})

	pc.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if remote.Kind() != webrtc.RTPCodecTypeAudio {
			return
		}
		log.Printf("[%s] remote audio track: %s", sessionID, remote.Codec().MimeType)
		dec, err := opus.NewDecoder(micSampleRate, 1)
		if err != nil {
			log.Printf("[%s] opus decoder: %v", sessionID, err)
			return
		}
		go func() {
			samples := make([]int16, 1920)
			buf := make([]byte, 0, 3840)
			for ctx.Err() == nil {
				pkt, _, err := remote.ReadRTP()
				if err != nil {
					return
				}
				if len(pkt.Payload) == 0 {
					continue
				}
				n, err := dec.Decode(pkt.Payload, samples)
				if err != nil {
					continue
				}
				buf = buf[:0]
				for i := 0; i < n; i++ {
					v := uint16(samples[i])
					buf = append(buf, byte(v), byte(v>>8))
				}
				recorder.Append(buf)
			}
		}()
	})

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		// The browser falls back to RTC control frames when the socket dies.
		if dc.Label() != "control" {
			return
		}
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			if strings.TrimSpace(strings.ToLower(string(msg.Data))) == "bye" {
				cancel()
			}
		})
	})
}

// answer completes the SDP exchange for the received offer.
func (h *Handler) answer(pc *webrtc.PeerConnection, offerSDP string, out *wsWriter) error {
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offerSDP}
	if err := pc.SetRemoteDescription(offer); err != nil {
		return err
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return err
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		return err
	}
	local := pc.LocalDescription()
	if local == nil {
		return fmt.Errorf("no local description")
	}
	return out.send(signalMessage{Type: "answer", SDP: local.SDP})
}

func parseICEServers(iceJSON string) []webrtc.ICEServer {
	var servers []webrtc.ICEServer
	if err := json.Unmarshal([]byte(iceJSON), &servers); err == nil && len(servers) > 0 {
		return servers
	}
	return []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}
}
