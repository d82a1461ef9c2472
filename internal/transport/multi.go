// SPDX-License-Identifier: MIT
package transport

import "errors"

// Multi fans one frame out to several transports. Send tries every
// transport even when one fails and reports the joined errors; Close
// closes all of them.
func Multi(transports ...Transport) Transport {
	return multiTransport(transports)
}

type multiTransport []Transport

func (m multiTransport) Send(f Frame) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiTransport) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
