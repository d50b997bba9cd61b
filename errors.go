/*
 * errors.go, part of gomace.
 *
 *
 * Copyright 2023 Raul Mera <rmera{at}usachDOTcl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 * goMace is currently developed at the Universidad de Santiago de Chile
 * (USACH)
 *
 */

package mace

import "fmt"

//Error is the interface all errors of this library implement. The
//Decorate method adds information (normally, the name of the function
//passing the error up) without changing the error's type. Passing an
//empty string just returns the current decoration.
type Error interface {
	Error() string
	Decorate(string) []string
}

//ConfigError reports an inconsistent model configuration: a malformed or
//non-uniform symmetry signature, an output label unreachable by the
//coupling rule, or a species count inconsistent with the data. It is
//always produced at construction time and is fatal to the construction.
type ConfigError struct {
	msg  string
	deco []string
}

func configErrorf(format string, a ...interface{}) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, a...)}
}

func (e *ConfigError) Error() string {
	return e.msg
}

func (e *ConfigError) Decorate(dec string) []string {
	if dec != "" {
		e.deco = append(e.deco, dec)
	}
	return e.deco
}

//DomainError reports bad evaluation-time data, such as a zero-length
//edge vector between real atoms. It is fatal to the call that produced
//it; the model and its parameters remain usable.
type DomainError struct {
	msg  string
	deco []string
}

func domainErrorf(format string, a ...interface{}) *DomainError {
	return &DomainError{msg: fmt.Sprintf(format, a...)}
}

func (e *DomainError) Error() string {
	return e.msg
}

func (e *DomainError) Decorate(dec string) []string {
	if dec != "" {
		e.deco = append(e.deco, dec)
	}
	return e.deco
}

//ShapeError reports a parameter tree whose structure does not match the
//model that is asked to use it, typically after reloading persisted
//parameters built with a different configuration. The caller may recover
//by discarding the loaded tree; it must never be merged silently.
type ShapeError struct {
	msg  string
	deco []string
}

func shapeErrorf(format string, a ...interface{}) *ShapeError {
	return &ShapeError{msg: fmt.Sprintf(format, a...)}
}

func (e *ShapeError) Error() string {
	return e.msg
}

func (e *ShapeError) Decorate(dec string) []string {
	if dec != "" {
		e.deco = append(e.deco, dec)
	}
	return e.deco
}

//errDecorate asserts that err implements Error, decorates it with the
//caller's name and returns it. Using it on a foreign error is a
//programming mistake, so it panics.
func errDecorate(err error, caller string) error {
	e, ok := err.(Error)
	if !ok {
		panic("goMace: errDecorate used on a non-goMace error")
	}
	e.Decorate(caller)
	return e
}
