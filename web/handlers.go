package web

import (
	"bytes"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/mogaika/optchar/character"
	"github.com/mogaika/optchar/config"
	"github.com/mogaika/optchar/optchar"
	"github.com/mogaika/optchar/webutils"
)

type characterSummary struct {
	Name     string   `json:"name"`
	Joints   int      `json:"joints"`
	Sliders  int      `json:"sliders"`
	Vertices int      `json:"vertices"`
	Models   []string `json:"models"`
	Frames   []int    `json:"frames"`
}

type jointInfo struct {
	Name        string        `json:"name"`
	Parent      string        `json:"parent"`
	Children    []string      `json:"children"`
	Flags       optchar.Flags `json:"flags"`
	Exposed     bool          `json:"exposed"`
	Memberships int           `json:"memberships"`
	Frames      []int         `json:"frames"`
}

func annotations() *optchar.Annotations {
	if ServerState.Annotations == nil {
		ServerState.Annotations = optchar.NewAnnotations()
		for _, ch := range ServerState.Collection.Characters {
			optchar.Classify(ch, ServerState.Annotations, config.DefaultTolerance)
		}
	}
	return ServerState.Annotations
}

func findCharacter(r *http.Request) (*character.Character, error) {
	name := mux.Vars(r)["name"]
	if ch := ServerState.Collection.FindCharacter(name); ch != nil {
		return ch, nil
	}
	return nil, errors.Wrapf(webutils.ErrNotFound, "Character %q", name)
}

func HandlerAjaxCharacters(w http.ResponseWriter, r *http.Request) {
	list := make([]characterSummary, 0, ServerState.Collection.NumCharacters())
	for _, ch := range ServerState.Collection.Characters {
		s := characterSummary{
			Name:     ch.Name,
			Joints:   ch.NumJoints(),
			Sliders:  ch.NumSliders(),
			Vertices: len(ch.Vertices()),
		}
		for m := 0; m < ch.NumModels(); m++ {
			s.Models = append(s.Models, ch.Model(m).Name)
			s.Frames = append(s.Frames, ch.NumFrames(m))
		}
		list = append(list, s)
	}
	webutils.WriteJson(w, list)
}

func HandlerAjaxCharacter(w http.ResponseWriter, r *http.Request) {
	if ch, err := findCharacter(r); err != nil {
		webutils.WriteError(w, err)
	} else {
		webutils.WriteJson(w, optchar.Hierarchy(ch, annotations()))
	}
}

func HandlerYamlCharacter(w http.ResponseWriter, r *http.Request) {
	if ch, err := findCharacter(r); err != nil {
		webutils.WriteError(w, err)
	} else {
		webutils.WriteYaml(w, optchar.Hierarchy(ch, annotations()))
	}
}

// HandlerTextCharacter prints the listing as the command line does;
// ?commands=1 selects the reparent form.
func HandlerTextCharacter(w http.ResponseWriter, r *http.Request) {
	ch, err := findCharacter(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	l := optchar.Hierarchy(ch, annotations())
	l.AsCommands = r.URL.Query().Get("commands") != ""

	var buf bytes.Buffer
	if _, err := l.WriteTo(&buf); err != nil {
		webutils.WriteError(w, err)
	} else {
		webutils.WriteText(w, buf.String())
	}
}

func HandlerAjaxJoint(w http.ResponseWriter, r *http.Request) {
	ch, err := findCharacter(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	name := mux.Vars(r)["joint"]
	j := ch.FindJoint(name)
	if j == nil {
		webutils.WriteError(w, errors.Wrapf(webutils.ErrNotFound, "Joint %q in %q", name, ch.Name))
		return
	}

	info := jointInfo{
		Name:        j.Name(),
		Flags:       annotations().Flags(j),
		Exposed:     j.IsExposed(),
		Memberships: j.NumMemberships(),
		Children:    []string{},
	}
	if p := j.Parent(); p != nil {
		info.Parent = p.Name()
	}
	for _, c := range j.Children() {
		info.Children = append(info.Children, c.Name())
	}
	for m := 0; m < ch.NumModels(); m++ {
		info.Frames = append(info.Frames, j.NumFrames(m))
	}
	webutils.WriteJson(w, info)
}

func HandlerAjaxReport(w http.ResponseWriter, r *http.Request) {
	report := ServerState.Report
	if report == nil {
		report = []string{}
	}
	webutils.WriteJson(w, report)
}

func HandlerDumpModel(w http.ResponseWriter, r *http.Request) {
	if ServerState.Export == nil {
		webutils.WriteError(w, errors.Wrapf(webutils.ErrNotFound, "No model loaded"))
		return
	}
	var buf bytes.Buffer
	if err := ServerState.Export(&buf); err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Failed to export"))
		return
	}
	name := strings.TrimSuffix(filepath.Base(ServerState.Source), filepath.Ext(ServerState.Source))
	if name == "" || name == "." {
		name = "model"
	}
	webutils.WriteFile(w, &buf, name+".glb")
}

// HandlerActionOptimize optimizes the served characters once and answers
// with the new report.
func HandlerActionOptimize(w http.ResponseWriter, r *http.Request) {
	st := ServerState
	if st.Optimize == nil {
		webutils.WriteError(w, errors.Errorf("Nothing to optimize"))
		return
	}
	res, err := st.Optimize()
	// a failed run may have compacted part of the collection already
	st.Optimize = nil
	if res != nil {
		st.Annotations = res.Annotations
	}
	if err != nil {
		st.Report = append(st.Report, err.Error())
		if st.Status != nil {
			st.Status.Error("%v", err)
		}
		webutils.WriteError(w, errors.Wrapf(err, "Failed to optimize"))
		return
	}

	var buf bytes.Buffer
	res.WriteReport(&buf)
	st.Report = []string{}
	if text := strings.TrimSpace(buf.String()); text != "" {
		st.Report = strings.Split(text, "\n")
	}
	if st.Status != nil {
		for _, warn := range res.Warnings {
			st.Status.Warning("%s", warn.String())
		}
		for _, c := range res.Compactions {
			st.Status.Info("%s", c.Summary())
		}
	}
	webutils.WriteJson(w, st.Report)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func HandlerWsStatus(w http.ResponseWriter, r *http.Request) {
	if ServerState.Status == nil {
		webutils.WriteError(w, errors.Wrapf(webutils.ErrNotFound, "No status feed"))
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[web] ws upgrade error: %v", err)
		return
	}
	ServerState.Status.Serve(conn)
}
