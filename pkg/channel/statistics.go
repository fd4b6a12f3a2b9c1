package channel

import "sync/atomic"

// Statistics tracks channel-level statistics
type Statistics struct {
	// Report statistics
	numReportsTx  uint64
	numReportsRx  uint64
	numBadReports uint64

	// Message statistics
	numMessagesTx    uint64
	numMessagesRx    uint64
	numMessageErrors uint64
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{}
}

// ReportTx increments transmitted reports
func (s *Statistics) ReportTx() {
	atomic.AddUint64(&s.numReportsTx, 1)
}

// ReportRx increments received reports
func (s *Statistics) ReportRx() {
	atomic.AddUint64(&s.numReportsRx, 1)
}

// BadReport increments malformed reports
func (s *Statistics) BadReport() {
	atomic.AddUint64(&s.numBadReports, 1)
}

// MessageTx increments transmitted logical messages
func (s *Statistics) MessageTx() {
	atomic.AddUint64(&s.numMessagesTx, 1)
}

// MessageRx increments received logical messages
func (s *Statistics) MessageRx() {
	atomic.AddUint64(&s.numMessagesRx, 1)
}

// MessageError increments reassembly/decode errors
func (s *Statistics) MessageError() {
	atomic.AddUint64(&s.numMessageErrors, 1)
}

// GetReportsTx returns transmitted reports
func (s *Statistics) GetReportsTx() uint64 {
	return atomic.LoadUint64(&s.numReportsTx)
}

// GetReportsRx returns received reports
func (s *Statistics) GetReportsRx() uint64 {
	return atomic.LoadUint64(&s.numReportsRx)
}

// GetBadReports returns malformed reports
func (s *Statistics) GetBadReports() uint64 {
	return atomic.LoadUint64(&s.numBadReports)
}

// GetMessagesTx returns transmitted logical messages
func (s *Statistics) GetMessagesTx() uint64 {
	return atomic.LoadUint64(&s.numMessagesTx)
}

// GetMessagesRx returns received logical messages
func (s *Statistics) GetMessagesRx() uint64 {
	return atomic.LoadUint64(&s.numMessagesRx)
}

// GetMessageErrors returns reassembly/decode errors
func (s *Statistics) GetMessageErrors() uint64 {
	return atomic.LoadUint64(&s.numMessageErrors)
}

// Reset resets all statistics
func (s *Statistics) Reset() {
	atomic.StoreUint64(&s.numReportsTx, 0)
	atomic.StoreUint64(&s.numReportsRx, 0)
	atomic.StoreUint64(&s.numBadReports, 0)
	atomic.StoreUint64(&s.numMessagesTx, 0)
	atomic.StoreUint64(&s.numMessagesRx, 0)
	atomic.StoreUint64(&s.numMessageErrors, 0)
}
