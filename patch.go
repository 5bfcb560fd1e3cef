// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import "bytes"

// mergePatch applies the RFC 7396 patch at y.nodes[ip] to d.nodes[it].
// Members of d are removed or replaced through edits; new members are added
// on the append chain.  It returns the document and node index holding the
// result, which is the patch itself when the patch is not an object or the
// target is not an object.
func (d *document) mergePatch(it int, y *document, ip int) (*document, int) {
	if y.nodes[ip].kind != KindObject {
		return y, ip
	}
	if d.nodes[it].kind != KindObject {
		y.removeAllNulls(ip)
		return y, ip
	}
	iRoot := it
	nPatch := y.nodes[ip].n
	nTarget := d.nodes[it].n
	for i := 1; i < nPatch; i += y.nodeSize(ip+i+1) + 1 {
		label := &y.nodes[ip+i]
		iValue := ip + i + 1
		j := 1
		for ; j < nTarget; j += d.nodeSize(it+j+1) + 1 {
			if !bytes.Equal(d.nodes[it+j].content, label.content) {
				continue
			}
			iTarget := it + j + 1
			if d.nodes[iTarget].flags&(flagRemove|flagReplace) != 0 {
				break
			}
			if y.nodes[iValue].kind == KindNull {
				d.nodes[iTarget].flags |= flagRemove
				break
			}
			rd, ri := d.mergePatch(iTarget, y, iValue)
			if rd != d || ri != iTarget {
				d.addSubst(iTarget)
				d.appendNodes(rd.nodes[ri : ri+rd.nodeSize(ri)])
			}
			break
		}
		if j >= nTarget && y.nodes[iValue].kind != KindNull {
			iStart := d.addNode(KindObject, nil)
			l := d.addNode(label.kind, label.content)
			d.nodes[l].flags |= flagLabel
			if y.nodes[iValue].kind == KindObject {
				y.removeAllNulls(iValue)
			}
			n := y.nodeSize(iValue)
			d.appendNodes(y.nodes[iValue : iValue+n])
			d.nodes[iStart].n = n + 1
			d.link(iRoot, iStart)
			iRoot = iStart
		}
	}
	return d, it
}

// removeAllNulls marks every null-valued member of the object at idx, and
// of the objects nested in it, as removed.
func (d *document) removeAllNulls(idx int) {
	n := d.nodes[idx].n
	for i := 2; i <= n; i += d.nodeSize(idx+i) + 1 {
		switch d.nodes[idx+i].kind {
		case KindNull:
			d.nodes[idx+i].flags |= flagRemove
		case KindObject:
			d.removeAllNulls(idx + i)
		}
	}
}
