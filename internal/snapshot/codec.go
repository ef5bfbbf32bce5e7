package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mind-engage/qti-testengine/internal/testdriver"
	"github.com/mind-engage/qti-testengine/pkg/duration"
	"github.com/mind-engage/qti-testengine/pkg/expr"
	"github.com/mind-engage/qti-testengine/pkg/pending"
	"github.com/mind-engage/qti-testengine/pkg/qerr"
	"github.com/mind-engage/qti-testengine/pkg/qtimodel"
	"github.com/mind-engage/qti-testengine/pkg/route"
	"github.com/mind-engage/qti-testengine/pkg/session"
	"github.com/mind-engage/qti-testengine/pkg/variable"
)

// Encode serializes ts to a self-describing byte stream per the normative
// field order of §4.9, plus a supplemental trailer (duration store,
// pending response store, lastOccurrenceUpdate, visited testParts, path,
// and the time reference) the base layout is silent on but that a
// complete round-trip (§8 invariant) requires.
func Encode(ts *testdriver.TestSession, seeker *Seeker) ([]byte, error) {
	rs := ts.Snapshot()
	buf := &bytes.Buffer{}

	writeString(buf, rs.SessionID)
	buf.WriteByte(byte(rs.State))
	writeUvarint(buf, uint64(ts.Route.Position()))

	items := ts.Route.Items()
	writeUvarint(buf, uint64(len(items)))
	for _, it := range items {
		if err := encodeRouteItem(buf, seeker, it); err != nil {
			return nil, err
		}
		sess, hasSess := rs.Items.GetSession(it.ItemRef.Identifier, it.Occurrence)
		if err := encodeItemSession(buf, seeker, it.ItemRef, sess, hasSess); err != nil {
			return nil, err
		}
	}

	writeUvarint(buf, uint64(len(ts.Test.OutcomeDeclarations)))
	for i := range ts.Test.OutcomeDeclarations {
		d := &ts.Test.OutcomeDeclarations[i]
		v, _ := rs.Outcomes.GetVariable(d.Identifier)
		encodeValue(buf, v.Value)
	}

	encodeDurations(buf, rs.Durations)
	if err := encodePending(buf, rs.Pending); err != nil {
		return nil, err
	}
	encodeLastOccurrenceUpdate(buf, rs.LastOccurrenceUpdate)
	encodeVisitedTestParts(buf, rs.VisitedTestParts)
	encodePath(buf, rs.Path)
	encodeTimeReference(buf, rs.TimeReference)

	return buf.Bytes(), nil
}

func encodeRouteItem(buf *bytes.Buffer, seeker *Seeker, it route.Item) error {
	tpIdx, ok := seeker.IndexOfTestPart(it.TestPart)
	if !ok {
		return qerr.New(qerr.LogicError, it.TestPart.Identifier, "testPart not found in Seeker")
	}
	writeUvarint(buf, uint64(tpIdx))

	writeUvarint(buf, uint64(len(it.Sections)))
	for _, sec := range it.Sections {
		secIdx, ok := seeker.IndexOfSection(sec)
		if !ok {
			return qerr.New(qerr.LogicError, sec.Identifier, "assessmentSection not found in Seeker")
		}
		writeUvarint(buf, uint64(secIdx))
	}

	refIdx, ok := seeker.IndexOfItemRef(it.ItemRef)
	if !ok {
		return qerr.New(qerr.LogicError, it.ItemRef.Identifier, "assessmentItemRef not found in Seeker")
	}
	writeUvarint(buf, uint64(refIdx))
	writeUvarint(buf, uint64(it.Occurrence))

	branches := effectiveBranchRulePtrs(it.TestPart, it.Sections, it.ItemRef)
	writeUvarint(buf, uint64(len(branches)))
	for _, b := range branches {
		idx, ok := seeker.IndexOfBranchRule(b)
		if !ok {
			return qerr.New(qerr.LogicError, it.ItemRef.Identifier, "branchRule not found in Seeker")
		}
		writeUvarint(buf, uint64(idx))
	}

	preconds := effectivePreConditionPtrs(it.TestPart, it.Sections, it.ItemRef)
	writeUvarint(buf, uint64(len(preconds)))
	for _, p := range preconds {
		idx, ok := seeker.IndexOfPreCondition(p)
		if !ok {
			return qerr.New(qerr.LogicError, it.ItemRef.Identifier, "preCondition not found in Seeker")
		}
		writeUvarint(buf, uint64(idx))
	}
	return nil
}

func effectiveBranchRulePtrs(tp *qtimodel.TestPart, chain qtimodel.SectionChain, ref *qtimodel.AssessmentItemRef) []*qtimodel.BranchRule {
	var out []*qtimodel.BranchRule
	for i := range tp.BranchRules {
		out = append(out, &tp.BranchRules[i])
	}
	for _, sec := range chain {
		for i := range sec.BranchRules {
			out = append(out, &sec.BranchRules[i])
		}
	}
	for i := range ref.BranchRules {
		out = append(out, &ref.BranchRules[i])
	}
	return out
}

func effectivePreConditionPtrs(tp *qtimodel.TestPart, chain qtimodel.SectionChain, ref *qtimodel.AssessmentItemRef) []*qtimodel.PreCondition {
	var out []*qtimodel.PreCondition
	for i := range tp.PreConditions {
		out = append(out, &tp.PreConditions[i])
	}
	for _, sec := range chain {
		for i := range sec.PreConditions {
			out = append(out, &sec.PreConditions[i])
		}
	}
	for i := range ref.PreConditions {
		out = append(out, &ref.PreConditions[i])
	}
	return out
}

func encodeItemSession(buf *bytes.Buffer, seeker *Seeker, ref *qtimodel.AssessmentItemRef, sess *session.Session, hasSess bool) error {
	writeBool(buf, hasSess)
	if !hasSess {
		return nil
	}
	writeUvarint(buf, uint64(sess.State))
	writeUvarint(buf, uint64(sess.NumAttempts))
	writeString(buf, formatISO8601Duration(sess.Duration))
	writeString(buf, string(sess.CompletionStatus))

	writeUvarint(buf, uint64(len(ref.ResponseDeclarations)))
	for i := range ref.ResponseDeclarations {
		d := &ref.ResponseDeclarations[i]
		idx, ok := seeker.IndexOfResponseDecl(d)
		if !ok {
			return qerr.New(qerr.LogicError, d.Identifier, "responseDeclaration not found in Seeker")
		}
		writeUvarint(buf, uint64(idx))
		v, _ := sess.Vars.GetVariable(d.Identifier)
		encodeValue(buf, v.Value)
	}

	writeUvarint(buf, uint64(len(ref.OutcomeDeclarations)))
	for _, d := range ref.OutcomeDeclarations {
		v, _ := sess.Vars.GetVariable(d.Identifier)
		encodeValue(buf, v.Value)
	}
	return nil
}

func encodeDurations(buf *bytes.Buffer, store *duration.Store) {
	ids := store.Identifiers()
	sort.Strings(ids)
	writeUvarint(buf, uint64(len(ids)))
	for _, id := range ids {
		writeString(buf, id)
		writeString(buf, formatISO8601Duration(store.Get(id)))
	}
}

func encodePending(buf *bytes.Buffer, store *pending.Store) error {
	entries := store.All()
	writeUvarint(buf, uint64(len(entries)))
	for _, pr := range entries {
		writeString(buf, pr.ItemRefID)
		writeUvarint(buf, uint64(pr.Occurrence))
		keys := make([]string, 0, len(pr.Responses))
		for k := range pr.Responses {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		writeUvarint(buf, uint64(len(keys)))
		for _, k := range keys {
			writeString(buf, k)
			encodeValueTyped(buf, pr.Responses[k])
		}
	}
	return nil
}

func encodeLastOccurrenceUpdate(buf *bytes.Buffer, m map[string]int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	writeUvarint(buf, uint64(len(keys)))
	for _, k := range keys {
		writeString(buf, k)
		writeUvarint(buf, uint64(m[k]))
	}
}

func encodeVisitedTestParts(buf *bytes.Buffer, m map[string]bool) {
	var keys []string
	for k, visited := range m {
		if visited {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	writeUvarint(buf, uint64(len(keys)))
	for _, k := range keys {
		writeString(buf, k)
	}
}

func encodePath(buf *bytes.Buffer, path []int) {
	writeUvarint(buf, uint64(len(path)))
	for _, p := range path {
		writeUvarint(buf, uint64(p))
	}
}

func encodeTimeReference(buf *bytes.Buffer, t *time.Time) {
	writeBool(buf, t != nil)
	if t != nil {
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(t.UnixNano()))
		buf.Write(tmp[:])
	}
}

// Decode reconstructs a TestSession from a byte stream previously produced
// by Encode, against the given AssessmentTest tree and Seeker (which must
// be derived from that same tree — a mismatched pair produces
// LogicError, not a panic).
func Decode(data []byte, test *qtimodel.AssessmentTest, seeker *Seeker, cfg testdriver.Config, engine expr.Engine, results testdriver.ResultSink, resultsPolicy testdriver.ResultSubmissionPolicy) (*testdriver.TestSession, error) {
	r := bytes.NewReader(data)

	sessionID, err := readString(r)
	if err != nil {
		return nil, qerr.Wrap(qerr.LogicError, test.Identifier, "truncated stream: sessionID", err)
	}
	stateByte, err := r.ReadByte()
	if err != nil {
		return nil, qerr.Wrap(qerr.LogicError, test.Identifier, "truncated stream: testSessionState", err)
	}
	position, err := readUvarint(r)
	if err != nil {
		return nil, qerr.Wrap(qerr.LogicError, test.Identifier, "truncated stream: routePosition", err)
	}
	routeCount, err := readUvarint(r)
	if err != nil {
		return nil, qerr.Wrap(qerr.LogicError, test.Identifier, "truncated stream: routeCount", err)
	}

	items := make([]route.Item, 0, routeCount)
	itemsStore := session.NewStore()
	for i := uint64(0); i < routeCount; i++ {
		it, err := decodeRouteItem(r, seeker)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
		if err := decodeItemSession(r, seeker, itemsStore, it); err != nil {
			return nil, err
		}
	}
	rt := route.New(items)
	if err := rt.SetPosition(int(position)); err != nil {
		return nil, err
	}

	outcomes := variable.NewState()
	for _, d := range test.OutcomeDeclarations {
		outcomes.Declare(d)
	}
	outcomeCount, err := readUvarint(r)
	if err != nil {
		return nil, qerr.Wrap(qerr.LogicError, test.Identifier, "truncated stream: outcome count", err)
	}
	if int(outcomeCount) != len(test.OutcomeDeclarations) {
		return nil, qerr.New(qerr.LogicError, test.Identifier, "stream outcome count does not match model")
	}
	for _, d := range test.OutcomeDeclarations {
		v, err := decodeValue(r, d.Cardinality, d.BaseType)
		if err != nil {
			return nil, err
		}
		if err := outcomes.SetVariable(d.Identifier, v); err != nil {
			return nil, err
		}
	}

	durations, err := decodeDurations(r)
	if err != nil {
		return nil, err
	}
	pendingStore, err := decodePending(r)
	if err != nil {
		return nil, err
	}
	lastOccurrenceUpdate, err := decodeLastOccurrenceUpdate(r)
	if err != nil {
		return nil, err
	}
	visitedTestParts, err := decodeVisitedTestParts(r)
	if err != nil {
		return nil, err
	}
	path, err := decodePath(r)
	if err != nil {
		return nil, err
	}
	timeReference, err := decodeTimeReference(r)
	if err != nil {
		return nil, err
	}

	rs := testdriver.RestoreState{
		SessionID:            sessionID,
		State:                testdriver.State(stateByte),
		Items:                itemsStore,
		Durations:            durations,
		Pending:              pendingStore,
		Outcomes:             outcomes,
		LastOccurrenceUpdate: lastOccurrenceUpdate,
		VisitedTestParts:     visitedTestParts,
		Path:                 path,
		TimeReference:        timeReference,
	}
	return testdriver.Restore(test, rt, rs, cfg, engine, results, resultsPolicy), nil
}

func decodeRouteItem(r *bytes.Reader, seeker *Seeker) (route.Item, error) {
	tpIdx, err := readUvarint(r)
	if err != nil {
		return route.Item{}, err
	}
	tp, ok := seeker.TestPartByIndex(int(tpIdx))
	if !ok {
		return route.Item{}, qerr.New(qerr.LogicError, "", "decoded testPart index out of range")
	}

	chainLen, err := readUvarint(r)
	if err != nil {
		return route.Item{}, err
	}
	chain := make(qtimodel.SectionChain, 0, chainLen)
	for i := uint64(0); i < chainLen; i++ {
		secIdx, err := readUvarint(r)
		if err != nil {
			return route.Item{}, err
		}
		sec, ok := seeker.SectionByIndex(int(secIdx))
		if !ok {
			return route.Item{}, qerr.New(qerr.LogicError, "", "decoded assessmentSection index out of range")
		}
		chain = append(chain, sec)
	}

	refIdx, err := readUvarint(r)
	if err != nil {
		return route.Item{}, err
	}
	ref, ok := seeker.ItemRefByIndex(int(refIdx))
	if !ok {
		return route.Item{}, qerr.New(qerr.LogicError, "", "decoded assessmentItemRef index out of range")
	}

	occurrence, err := readUvarint(r)
	if err != nil {
		return route.Item{}, err
	}

	// The effective branchRule/preCondition index lists are redundant with
	// what route.NewItem recomputes from the model tree; read and discard
	// them to stay stream-compatible.
	if err := skipIndexList(r); err != nil {
		return route.Item{}, err
	}
	if err := skipIndexList(r); err != nil {
		return route.Item{}, err
	}

	return route.NewItem(tp, chain, ref, int(occurrence)), nil
}

func skipIndexList(r *bytes.Reader) error {
	n, err := readUvarint(r)
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		if _, err := readUvarint(r); err != nil {
			return err
		}
	}
	return nil
}

func decodeItemSession(r *bytes.Reader, seeker *Seeker, store *session.Store, it route.Item) error {
	hasSess, err := readBool(r)
	if err != nil {
		return err
	}
	if !hasSess {
		return nil
	}

	stateVal, err := readUvarint(r)
	if err != nil {
		return err
	}
	numAttempts, err := readUvarint(r)
	if err != nil {
		return err
	}
	durStr, err := readString(r)
	if err != nil {
		return err
	}
	dur, err := parseISO8601Duration(durStr)
	if err != nil {
		return err
	}
	completion, err := readString(r)
	if err != nil {
		return err
	}

	sess := session.New(it.ItemRef.Identifier, it.Occurrence, allDeclarations(it.ItemRef), it.ItemSessionControl, it.TimeLimits, it.TestPart.NavigationMode, it.TestPart.SubmissionMode)
	sess.State = session.State(stateVal)
	sess.NumAttempts = int(numAttempts)
	sess.Duration = dur
	sess.CompletionStatus = session.CompletionStatus(completion)

	respCount, err := readUvarint(r)
	if err != nil {
		return err
	}
	for i := uint64(0); i < respCount; i++ {
		idx, err := readUvarint(r)
		if err != nil {
			return err
		}
		d, ok := seeker.ResponseDeclByIndex(int(idx))
		if !ok {
			return qerr.New(qerr.LogicError, it.ItemRef.Identifier, "decoded responseDeclaration index out of range")
		}
		v, err := decodeValue(r, d.Cardinality, d.BaseType)
		if err != nil {
			return err
		}
		if err := sess.Vars.SetVariable(d.Identifier, v); err != nil {
			return err
		}
	}

	outCount, err := readUvarint(r)
	if err != nil {
		return err
	}
	if int(outCount) != len(it.ItemRef.OutcomeDeclarations) {
		return qerr.New(qerr.LogicError, it.ItemRef.Identifier, "stream item outcome count does not match model")
	}
	for _, d := range it.ItemRef.OutcomeDeclarations {
		v, err := decodeValue(r, d.Cardinality, d.BaseType)
		if err != nil {
			return err
		}
		if err := sess.Vars.SetVariable(d.Identifier, v); err != nil {
			return err
		}
	}

	store.AddSession(it.ItemRef.Identifier, it.Occurrence, sess)
	return nil
}

func allDeclarations(ref *qtimodel.AssessmentItemRef) []variable.Declaration {
	var out []variable.Declaration
	out = append(out, ref.ResponseDeclarations...)
	out = append(out, ref.OutcomeDeclarations...)
	out = append(out, ref.TemplateDeclarations...)
	return out
}

func decodeDurations(r *bytes.Reader) (*duration.Store, error) {
	store := duration.NewStore()
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < n; i++ {
		id, err := readString(r)
		if err != nil {
			return nil, err
		}
		durStr, err := readString(r)
		if err != nil {
			return nil, err
		}
		d, err := parseISO8601Duration(durStr)
		if err != nil {
			return nil, err
		}
		store.Set(id, d)
	}
	return store, nil
}

func decodePending(r *bytes.Reader) (*pending.Store, error) {
	store := pending.NewStore()
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < n; i++ {
		itemRefID, err := readString(r)
		if err != nil {
			return nil, err
		}
		occurrence, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		respCount, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		responses := make(map[string]variable.Value, respCount)
		for j := uint64(0); j < respCount; j++ {
			key, err := readString(r)
			if err != nil {
				return nil, err
			}
			v, err := decodeValueTyped(r)
			if err != nil {
				return nil, err
			}
			responses[key] = v
		}
		store.AddPending(pending.Response{ItemRefID: itemRefID, Occurrence: int(occurrence), Responses: responses})
	}
	return store, nil
}

func decodeLastOccurrenceUpdate(r *bytes.Reader) (map[string]int, error) {
	m := make(map[string]int)
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < n; i++ {
		k, err := readString(r)
		if err != nil {
			return nil, err
		}
		v, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		m[k] = int(v)
	}
	return m, nil
}

func decodeVisitedTestParts(r *bytes.Reader) (map[string]bool, error) {
	m := make(map[string]bool)
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < n; i++ {
		k, err := readString(r)
		if err != nil {
			return nil, err
		}
		m[k] = true
	}
	return m, nil
}

func decodePath(r *bytes.Reader) ([]int, error) {
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	path := make([]int, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		path = append(path, int(v))
	}
	return path, nil
}

func decodeTimeReference(r *bytes.Reader) (*time.Time, error) {
	present, err := readBool(r)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	var tmp [8]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return nil, err
	}
	t := time.Unix(0, int64(binary.BigEndian.Uint64(tmp[:])))
	return &t, nil
}

// --- value encoding (§4.9) ---

func encodeValue(buf *bytes.Buffer, v variable.Value) {
	writeBool(buf, v.IsNull())
	if v.IsNull() {
		return
	}
	switch v.Cardinality {
	case variable.Single:
		encodeScalar(buf, v)
	case variable.Multiple, variable.Ordered:
		writeUvarint(buf, uint64(len(v.List())))
		for _, item := range v.List() {
			encodeScalar(buf, item)
		}
	case variable.Record:
		fields := v.Record()
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		writeUvarint(buf, uint64(len(keys)))
		for _, k := range keys {
			writeString(buf, k)
			buf.WriteByte(byte(fields[k].BaseType))
			encodeScalar(buf, fields[k])
		}
	}
}

// encodeValueTyped additionally prefixes cardinality and baseType, for
// values decoded without an externally-known Declaration (pending
// responses).
func encodeValueTyped(buf *bytes.Buffer, v variable.Value) {
	buf.WriteByte(byte(v.Cardinality))
	buf.WriteByte(byte(v.BaseType))
	encodeValue(buf, v)
}

func decodeValueTyped(r *bytes.Reader) (variable.Value, error) {
	cardByte, err := r.ReadByte()
	if err != nil {
		return variable.Value{}, err
	}
	btByte, err := r.ReadByte()
	if err != nil {
		return variable.Value{}, err
	}
	return decodeValue(r, variable.Cardinality(cardByte), variable.BaseType(btByte))
}

func decodeValue(r *bytes.Reader, card variable.Cardinality, bt variable.BaseType) (variable.Value, error) {
	isNull, err := readBool(r)
	if err != nil {
		return variable.Value{}, err
	}
	if isNull {
		return variable.Null(card, bt), nil
	}
	switch card {
	case variable.Single:
		return decodeScalar(r, bt)
	case variable.Multiple, variable.Ordered:
		n, err := readUvarint(r)
		if err != nil {
			return variable.Value{}, err
		}
		items := make([]variable.Value, 0, n)
		for i := uint64(0); i < n; i++ {
			item, err := decodeScalar(r, bt)
			if err != nil {
				return variable.Value{}, err
			}
			items = append(items, item)
		}
		if card == variable.Multiple {
			return variable.MultipleValue(bt, items...), nil
		}
		return variable.OrderedValue(bt, items...), nil
	case variable.Record:
		n, err := readUvarint(r)
		if err != nil {
			return variable.Value{}, err
		}
		fields := make(map[string]variable.Value, n)
		for i := uint64(0); i < n; i++ {
			k, err := readString(r)
			if err != nil {
				return variable.Value{}, err
			}
			fbt, err := r.ReadByte()
			if err != nil {
				return variable.Value{}, err
			}
			v, err := decodeScalar(r, variable.BaseType(fbt))
			if err != nil {
				return variable.Value{}, err
			}
			fields[k] = v
		}
		return variable.RecordValue(fields), nil
	}
	return variable.Value{}, qerr.New(qerr.LogicError, "", "unknown cardinality in stream")
}

func encodeScalar(buf *bytes.Buffer, v variable.Value) {
	switch v.BaseType {
	case variable.BaseTypeIdentifier:
		writeString(buf, v.Ident())
	case variable.BaseTypeBoolean:
		writeBool(buf, v.Bool())
	case variable.BaseTypeInteger:
		writeInt32(buf, int32(v.Int()))
	case variable.BaseTypeFloat:
		writeFloat64(buf, v.Float())
	case variable.BaseTypeString:
		writeString(buf, v.Str())
	case variable.BaseTypePoint:
		p := v.Point()
		writeInt32(buf, int32(p.X))
		writeInt32(buf, int32(p.Y))
	case variable.BaseTypePair, variable.BaseTypeDirectedPair:
		p := v.Pair()
		writeString(buf, p.First)
		writeString(buf, p.Second)
	case variable.BaseTypeDuration:
		writeString(buf, formatISO8601Duration(v.Duration()))
	case variable.BaseTypeFile:
		writeBytesField(buf, v.File())
	case variable.BaseTypeURI:
		writeString(buf, v.URI())
	}
}

func decodeScalar(r *bytes.Reader, bt variable.BaseType) (variable.Value, error) {
	switch bt {
	case variable.BaseTypeIdentifier:
		s, err := readString(r)
		return variable.IdentValue(s), err
	case variable.BaseTypeBoolean:
		b, err := readBool(r)
		return variable.BoolValue(b), err
	case variable.BaseTypeInteger:
		i, err := readInt32(r)
		return variable.IntValue(int64(i)), err
	case variable.BaseTypeFloat:
		f, err := readFloat64(r)
		return variable.FloatValue(f), err
	case variable.BaseTypeString:
		s, err := readString(r)
		return variable.StringValue(s), err
	case variable.BaseTypePoint:
		x, err := readInt32(r)
		if err != nil {
			return variable.Value{}, err
		}
		y, err := readInt32(r)
		return variable.PointValue(int(x), int(y)), err
	case variable.BaseTypePair:
		a, err := readString(r)
		if err != nil {
			return variable.Value{}, err
		}
		b, err := readString(r)
		return variable.PairValue(a, b), err
	case variable.BaseTypeDirectedPair:
		a, err := readString(r)
		if err != nil {
			return variable.Value{}, err
		}
		b, err := readString(r)
		return variable.DirectedPairValue(a, b), err
	case variable.BaseTypeDuration:
		s, err := readString(r)
		if err != nil {
			return variable.Value{}, err
		}
		d, err := parseISO8601Duration(s)
		return variable.DurationValue(d), err
	case variable.BaseTypeFile:
		b, err := readBytesField(r)
		return variable.FileValue(b), err
	case variable.BaseTypeURI:
		s, err := readString(r)
		return variable.URIValue(s), err
	}
	return variable.Value{}, qerr.New(qerr.LogicError, "", "unknown baseType in stream")
}

// --- wire primitives ---

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

func readUvarint(r *bytes.Reader) (uint64, error) {
	v, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, fmt.Errorf("snapshot: read varint: %w", err)
	}
	return v, nil
}

func writeBool(buf *bytes.Buffer, b bool) {
	if b {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func readBool(r *bytes.Reader) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, fmt.Errorf("snapshot: read bool: %w", err)
	}
	return b != 0, nil
}

func writeInt32(buf *bytes.Buffer, v int32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	buf.Write(tmp[:])
}

func readInt32(r *bytes.Reader) (int32, error) {
	var tmp [4]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, fmt.Errorf("snapshot: read int32: %w", err)
	}
	return int32(binary.BigEndian.Uint32(tmp[:])), nil
}

func writeFloat64(buf *bytes.Buffer, v float64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], math.Float64bits(v))
	buf.Write(tmp[:])
}

func readFloat64(r *bytes.Reader) (float64, error) {
	var tmp [8]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, fmt.Errorf("snapshot: read float64: %w", err)
	}
	return math.Float64frombits(binary.BigEndian.Uint64(tmp[:])), nil
}

func writeString(buf *bytes.Buffer, s string) {
	writeUvarint(buf, uint64(len(s)))
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readUvarint(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("snapshot: read string: %w", err)
	}
	return string(b), nil
}

func writeBytesField(buf *bytes.Buffer, b []byte) {
	writeUvarint(buf, uint64(len(b)))
	buf.Write(b)
}

func readBytesField(r *bytes.Reader) ([]byte, error) {
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("snapshot: read bytes: %w", err)
	}
	return b, nil
}

// formatISO8601Duration renders d as an ISO-8601 duration of the form
// "PT<seconds>S" (§4.9). Only the seconds designator is used since
// time.Duration itself carries no calendar component.
func formatISO8601Duration(d time.Duration) string {
	return "PT" + strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "S"
}

func parseISO8601Duration(s string) (time.Duration, error) {
	if !strings.HasPrefix(s, "PT") || !strings.HasSuffix(s, "S") {
		return 0, fmt.Errorf("snapshot: malformed ISO-8601 duration %q", s)
	}
	secs, err := strconv.ParseFloat(s[2:len(s)-1], 64)
	if err != nil {
		return 0, fmt.Errorf("snapshot: malformed ISO-8601 duration %q: %w", s, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
