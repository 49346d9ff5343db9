package dsla

import (
	"fmt"
	"math/big"

	"github.com/danmuck/dslactl/internal/codec"
	"github.com/danmuck/dslactl/internal/decimal"
)

var (
	SloTypeSchema = codec.TaggedUnion("SloType",
		codec.C("EqualTo"),
		codec.C("NotEqualTo"),
		codec.C("SmallerThan"),
		codec.C("SmallerOrEqualTo"),
		codec.C("GreaterThan"),
		codec.C("GreaterOrEqualTo"),
	)
	SlaStatusSchema = codec.TaggedUnion("SlaStatus",
		codec.C("NotStarted"),
		codec.C("Active", codec.F("periodId", codec.U32)),
		codec.C("Ended"),
	)
	StatusSchema = codec.TaggedUnion("Status",
		codec.C("NotVerified"),
		codec.C("Respected", codec.F("value", decimal.Schema)),
		codec.C("NotRespected", codec.F("value", decimal.Schema)),
	)
	PeriodLengthSchema = codec.TaggedUnion("PeriodLength",
		codec.C("Custom", codec.F("length", codec.U128)),
		codec.C("Monthly"),
		codec.C("Yearly"),
	)
	FeedErrorCodeSchema = codec.TaggedUnion("FeedErrorCode",
		codec.C("InvalidSwitchboardAccount"),
		codec.C("StaleFeed"),
		codec.C("ConfidenceIntervalExceeded"),
	)

	SloSchema = codec.Struct(
		codec.F("sloValue", decimal.Schema),
		codec.F("sloType", SloTypeSchema),
	)
	PeriodGeneratorSchema = codec.Struct(
		codec.F("start", codec.U128),
		codec.F("periodLength", PeriodLengthSchema),
		codec.F("nPeriods", codec.U32),
	)
)

func unitVariant(name string) codec.Variant {
	return codec.Variant{Name: name, Fields: codec.Record{}}
}

func caseName(u *codec.UnionSchema, d uint8) string {
	if c, ok := u.Case(d); ok {
		return c.Name
	}
	return fmt.Sprintf("%s(%d)", u.Name(), d)
}

func unitFromVariant(u *codec.UnionSchema, v codec.Variant) (uint8, error) {
	d, ok := u.Discriminant(v.Name)
	if !ok {
		return 0, &codec.VariantTagError{Union: u.Name(), Tag: v.Name}
	}
	return d, nil
}

// SloType is the comparison an SLO applies to the measured value.
type SloType uint8

const (
	SloEqualTo SloType = iota
	SloNotEqualTo
	SloSmallerThan
	SloSmallerOrEqualTo
	SloGreaterThan
	SloGreaterOrEqualTo
)

func (t SloType) String() string { return caseName(SloTypeSchema, uint8(t)) }

func (t SloType) Variant() codec.Variant { return unitVariant(t.String()) }

func SloTypeFromVariant(v codec.Variant) (SloType, error) {
	d, err := unitFromVariant(SloTypeSchema, v)
	return SloType(d), err
}

// FeedErrorCode is reported when the oracle feed cannot be trusted.
type FeedErrorCode uint8

const (
	FeedInvalidSwitchboardAccount FeedErrorCode = iota
	FeedStaleFeed
	FeedConfidenceIntervalExceeded
)

func (c FeedErrorCode) String() string { return caseName(FeedErrorCodeSchema, uint8(c)) }

func (c FeedErrorCode) Variant() codec.Variant { return unitVariant(c.String()) }

func FeedErrorCodeFromVariant(v codec.Variant) (FeedErrorCode, error) {
	d, err := unitFromVariant(FeedErrorCodeSchema, v)
	return FeedErrorCode(d), err
}

// SlaStatus is one of SlaNotStarted, SlaActive or SlaEnded.
type SlaStatus interface {
	Variant() codec.Variant
	isSlaStatus()
}

type SlaNotStarted struct{}

type SlaActive struct {
	PeriodID uint32
}

type SlaEnded struct{}

func (SlaNotStarted) isSlaStatus() {}
func (SlaActive) isSlaStatus()     {}
func (SlaEnded) isSlaStatus()      {}

func (SlaNotStarted) Variant() codec.Variant { return unitVariant("NotStarted") }
func (s SlaActive) Variant() codec.Variant {
	return codec.Variant{Name: "Active", Fields: codec.Record{"periodId": s.PeriodID}}
}
func (SlaEnded) Variant() codec.Variant { return unitVariant("Ended") }

func SlaStatusFromVariant(v codec.Variant) (SlaStatus, error) {
	switch v.Name {
	case "NotStarted":
		return SlaNotStarted{}, nil
	case "Active":
		r := codec.Read(v.Fields)
		s := SlaActive{PeriodID: r.Uint32("periodId")}
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("dsla: SlaStatus::Active: %w", err)
		}
		return s, nil
	case "Ended":
		return SlaEnded{}, nil
	}
	return nil, &codec.VariantTagError{Union: "SlaStatus", Tag: v.Name}
}

// Status is the verification outcome of one period.
type Status interface {
	Variant() codec.Variant
	isStatus()
}

type StatusNotVerified struct{}

type StatusRespected struct {
	Value decimal.Decimal
}

type StatusNotRespected struct {
	Value decimal.Decimal
}

func (StatusNotVerified) isStatus()  {}
func (StatusRespected) isStatus()    {}
func (StatusNotRespected) isStatus() {}

func (StatusNotVerified) Variant() codec.Variant { return unitVariant("NotVerified") }
func (s StatusRespected) Variant() codec.Variant {
	return codec.Variant{Name: "Respected", Fields: codec.Record{"value": s.Value.Record()}}
}
func (s StatusNotRespected) Variant() codec.Variant {
	return codec.Variant{Name: "NotRespected", Fields: codec.Record{"value": s.Value.Record()}}
}

func StatusFromVariant(v codec.Variant) (Status, error) {
	switch v.Name {
	case "NotVerified":
		return StatusNotVerified{}, nil
	case "Respected", "NotRespected":
		r := codec.Read(v.Fields)
		d, err := decimal.FromRecord(r.Record("value"))
		r.Fail("value", err)
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("dsla: Status::%s: %w", v.Name, err)
		}
		if v.Name == "Respected" {
			return StatusRespected{Value: d}, nil
		}
		return StatusNotRespected{Value: d}, nil
	}
	return nil, &codec.VariantTagError{Union: "Status", Tag: v.Name}
}

// PeriodLength is PeriodCustom, PeriodMonthly or PeriodYearly.
type PeriodLength interface {
	Variant() codec.Variant
	isPeriodLength()
}

// PeriodCustom is a fixed period in the program's time unit.
type PeriodCustom struct {
	Length *big.Int
}

type PeriodMonthly struct{}

type PeriodYearly struct{}

func (PeriodCustom) isPeriodLength()  {}
func (PeriodMonthly) isPeriodLength() {}
func (PeriodYearly) isPeriodLength()  {}

func (p PeriodCustom) Variant() codec.Variant {
	return codec.Variant{Name: "Custom", Fields: codec.Record{"length": p.Length}}
}
func (PeriodMonthly) Variant() codec.Variant { return unitVariant("Monthly") }
func (PeriodYearly) Variant() codec.Variant  { return unitVariant("Yearly") }

func PeriodLengthFromVariant(v codec.Variant) (PeriodLength, error) {
	switch v.Name {
	case "Custom":
		r := codec.Read(v.Fields)
		p := PeriodCustom{Length: r.BigInt("length")}
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("dsla: PeriodLength::Custom: %w", err)
		}
		return p, nil
	case "Monthly":
		return PeriodMonthly{}, nil
	case "Yearly":
		return PeriodYearly{}, nil
	}
	return nil, &codec.VariantTagError{Union: "PeriodLength", Tag: v.Name}
}

// variantOf tolerates a nil enum so encoding reports a value error instead
// of panicking.
func variantOf(v interface{ Variant() codec.Variant }) any {
	if v == nil {
		return nil
	}
	return v.Variant()
}

// Slo is the objective an SLA is measured against.
type Slo struct {
	SloValue decimal.Decimal
	SloType  SloType
}

func (s Slo) Record() codec.Record {
	return codec.Record{"sloValue": s.SloValue.Record(), "sloType": s.SloType.Variant()}
}

func SloFromRecord(rec codec.Record) (Slo, error) {
	r := codec.Read(rec)
	val, err := decimal.FromRecord(r.Record("sloValue"))
	r.Fail("sloValue", err)
	typ, err := SloTypeFromVariant(r.Variant("sloType"))
	r.Fail("sloType", err)
	if err := r.Err(); err != nil {
		return Slo{}, fmt.Errorf("dsla: Slo: %w", err)
	}
	return Slo{SloValue: val, SloType: typ}, nil
}

// PeriodGenerator describes the SLA schedule: NPeriods periods of
// PeriodLength starting at Start.
type PeriodGenerator struct {
	Start        *big.Int
	PeriodLength PeriodLength
	NPeriods     uint32
}

func (g PeriodGenerator) Record() codec.Record {
	return codec.Record{
		"start":        g.Start,
		"periodLength": variantOf(g.PeriodLength),
		"nPeriods":     g.NPeriods,
	}
}

func PeriodGeneratorFromRecord(rec codec.Record) (PeriodGenerator, error) {
	r := codec.Read(rec)
	g := PeriodGenerator{Start: r.BigInt("start"), NPeriods: r.Uint32("nPeriods")}
	pl, err := PeriodLengthFromVariant(r.Variant("periodLength"))
	r.Fail("periodLength", err)
	if err := r.Err(); err != nil {
		return PeriodGenerator{}, fmt.Errorf("dsla: PeriodGenerator: %w", err)
	}
	g.PeriodLength = pl
	return g, nil
}
