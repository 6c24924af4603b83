package export

import (
	"context"
	"fmt"
	"iter"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/tinytelemetry/etlq/internal/model"
)

const (
	// ScopeName identifies this tool as the OTLP instrumentation scope.
	ScopeName = "github.com/tinytelemetry/etlq"

	// CodeAttribute carries the validation code on exported log records.
	CodeAttribute = "validation.code"
)

// LogsRequest converts records into a single-resource OTLP export request.
func LogsRequest(seq iter.Seq[model.Record], serviceName string) *collogspb.ExportLogsServiceRequest {
	var logRecords []*logspb.LogRecord
	for r := range seq {
		logRecords = append(logRecords, toOTLPLogRecord(r))
	}

	return &collogspb.ExportLogsServiceRequest{
		ResourceLogs: []*logspb.ResourceLogs{{
			Resource: &resourcepb.Resource{
				Attributes: []*commonpb.KeyValue{stringAttr("service.name", serviceName)},
			},
			ScopeLogs: []*logspb.ScopeLogs{{
				Scope:      &commonpb.InstrumentationScope{Name: ScopeName},
				LogRecords: logRecords,
			}},
		}},
	}
}

// RecordCount returns the number of log records carried by req.
func RecordCount(req *collogspb.ExportLogsServiceRequest) int {
	n := 0
	for _, rl := range req.GetResourceLogs() {
		for _, sl := range rl.GetScopeLogs() {
			n += len(sl.GetLogRecords())
		}
	}
	return n
}

// MarshalOTLPJSON encodes req using the OTLP/JSON mapping.
func MarshalOTLPJSON(req *collogspb.ExportLogsServiceRequest) ([]byte, error) {
	return protojson.Marshal(req)
}

// DialOTLP opens a plaintext client connection to an OTLP/gRPC endpoint.
func DialOTLP(endpoint string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("otlp: dial %s: %w", endpoint, err)
	}
	return conn, nil
}

// PushOTLP sends req to a logs collector. A partial success with rejected
// records is reported as an error.
func PushOTLP(ctx context.Context, conn grpc.ClientConnInterface, req *collogspb.ExportLogsServiceRequest) error {
	resp, err := collogspb.NewLogsServiceClient(conn).Export(ctx, req)
	if err != nil {
		return fmt.Errorf("otlp: export: %w", err)
	}
	if ps := resp.GetPartialSuccess(); ps.GetRejectedLogRecords() > 0 {
		return fmt.Errorf("otlp: collector rejected %d log records: %s", ps.GetRejectedLogRecords(), ps.GetErrorMessage())
	}
	return nil
}

func toOTLPLogRecord(r model.Record) *logspb.LogRecord {
	return &logspb.LogRecord{
		TimeUnixNano:   uint64(r.Timestamp.UnixNano()),
		SeverityNumber: severityNumber(r.Severity),
		SeverityText:   r.Severity,
		Body:           &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: r.Description}},
		Attributes:     []*commonpb.KeyValue{stringAttr(CodeAttribute, r.Code)},
	}
}

func severityNumber(severity string) logspb.SeverityNumber {
	switch severity {
	case "ERROR":
		return logspb.SeverityNumber_SEVERITY_NUMBER_ERROR
	case "WARNING":
		return logspb.SeverityNumber_SEVERITY_NUMBER_WARN
	case "INFO":
		return logspb.SeverityNumber_SEVERITY_NUMBER_INFO
	default:
		return logspb.SeverityNumber_SEVERITY_NUMBER_UNSPECIFIED
	}
}

func stringAttr(key, value string) *commonpb.KeyValue {
	return &commonpb.KeyValue{
		Key:   key,
		Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: value}},
	}
}
